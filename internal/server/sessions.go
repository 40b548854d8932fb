package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/intervoice/internal/session"
	"github.com/user/intervoice/internal/types"
)

const streamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type createSessionRequest struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	InterviewID string `json:"interviewId"`
	FeedbackID  string `json:"feedbackId"`
}

type sessionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) machine(w http.ResponseWriter, r *http.Request) (*session.Machine, bool) {
	m, err := s.opts.Sessions.Get(types.SessionID(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return m, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Sessions.List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	kind, err := types.ParseCallKind(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := s.opts.Sessions.Create(session.Request{
		Kind:        kind,
		UserName:    body.UserName,
		UserID:      types.UserID(body.UserID),
		InterviewID: types.InterviewID(body.InterviewID),
		FeedbackID:  types.FeedbackID(body.FeedbackID),
	})
	s.start(w, r, m, http.StatusCreated)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	s.start(w, r, m, http.StatusOK)
}

// start places the call and always answers with the resulting snapshot.
func (s *Server) start(w http.ResponseWriter, r *http.Request, m *session.Machine, okStatus int) {
	if err := m.Start(r.Context()); err != nil {
		slog.Warn("session start failed", "session_id", string(m.ID()), "error", err)
		writeJSON(w, statusFor(err), m.Snapshot())
		return
	}
	writeJSON(w, okStatus, m.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	m.Disconnect(r.Context())
	writeJSON(w, http.StatusOK, m.Snapshot())
}

func (s *Server) handleSessionMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	var body sessionMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	role, err := types.ParseRole(body.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	accepted := m.HandleMessage(types.Utterance{Role: role, Content: body.Content})
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
}

func (s *Server) handleSessionFinish(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	finished := m.HandleFinish()
	writeJSON(w, http.StatusAccepted, map[string]bool{"finished": finished})
}

// streamFrame is the compact view pushed to the browser on every change.
type streamFrame struct {
	Status   types.CallStatus         `json:"status"`
	Latest   string                   `json:"latest"`
	Lines    int                      `json:"lines"`
	Error    string                   `json:"error,omitempty"`
	Feedback *session.FeedbackOutcome `json:"feedback,omitempty"`
}

func frameOf(snap session.Snapshot) streamFrame {
	return streamFrame{
		Status:   snap.Status,
		Latest:   snap.Latest,
		Lines:    len(snap.Transcript),
		Error:    snap.Error,
		Feedback: snap.Feedback,
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	m, ok := s.machine(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "session_id", string(m.ID()), "error", err)
		return
	}
	defer conn.Close()

	updates, stop := m.Watch()
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(frameOf(snap)); err != nil {
				slog.Debug("stream write failed", "session_id", string(m.ID()), "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
