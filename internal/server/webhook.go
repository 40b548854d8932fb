package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/voice"
)

// providerEvent is the envelope of the provider's server messages.
type providerEvent struct {
	Message struct {
		Type           string `json:"type"`
		TranscriptType string `json:"transcriptType"`
		Role           string `json:"role"`
		Transcript     string `json:"transcript"`
		Status         string `json:"status"`
		Call           struct {
			ID string `json:"id"`
		} `json:"call"`
	} `json:"message"`
}

// toEvent converts a server message into a hub event. Partial transcripts
// and unrelated message types yield ok == false.
func (e *providerEvent) toEvent() (voice.Event, bool) {
	msg := e.Message
	switch msg.Type {
	case "transcript":
		if msg.TranscriptType != "final" {
			return voice.Event{}, false
		}
		role, err := types.ParseRole(msg.Role)
		if err != nil {
			slog.Debug("transcript with unknown role", "role", msg.Role)
			return voice.Event{}, false
		}
		return voice.Event{
			Kind:      voice.EventMessage,
			Utterance: types.Utterance{Role: role, Content: msg.Transcript},
		}, true
	case "end-of-call-report":
		return voice.Event{Kind: voice.EventFinish}, true
	case "status-update":
		if msg.Status == "ended" {
			return voice.Event{Kind: voice.EventFinish}, true
		}
	}
	return voice.Event{}, false
}

func (s *Server) handleProviderEvent(w http.ResponseWriter, r *http.Request) {
	var ev providerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	callID := types.CallID(ev.Message.Call.ID)
	if callID == "" {
		writeError(w, http.StatusBadRequest, "message.call.id is required")
		return
	}

	delivered := 0
	if hubEvent, ok := ev.toEvent(); ok {
		delivered = s.opts.Hub.Publish(callID, hubEvent)
	}
	slog.Debug("provider event", "type", ev.Message.Type, "call_id", string(callID), "delivered", delivered)
	writeJSON(w, http.StatusOK, map[string]int{"delivered": delivered})
}
