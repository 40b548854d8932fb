package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/vapi"
)

type callRequest struct {
	WorkflowID string         `json:"workflowId"`
	Variables  map[string]any `json:"variables"`
}

type callResponse struct {
	Success   bool            `json:"success"`
	Call      json.RawMessage `json:"call,omitempty"`
	UsedShape string          `json:"usedShape,omitempty"`
	Error     string          `json:"error,omitempty"`
	Hint      string          `json:"hint,omitempty"`
	Attempts  []vapi.Attempt  `json:"attempts,omitempty"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, callResponse{Error: "invalid JSON"})
		return
	}

	handle, err := s.opts.Initiator.Initiate(r.Context(), req.WorkflowID, req.Variables)
	if err != nil {
		resp := callResponse{Error: err.Error()}
		var neg *vapi.NegotiationError
		if errors.As(err, &neg) {
			resp.Error = vapi.ErrAllShapesRejected.Error()
			resp.Hint = neg.Hint
			resp.Attempts = neg.Attempts
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			slog.Error("call initiation failed", "workflow_id", req.WorkflowID, "error", err)
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, callResponse{
		Success:   true,
		Call:      handle.Call,
		UsedShape: handle.UsedShape,
		Attempts:  handle.Attempts,
	})
}

type feedbackResponse struct {
	*feedback.Result
	Error string `json:"error,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedback.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, feedbackResponse{
			Result: &feedback.Result{Redirect: feedback.FallbackPath},
			Error:  "invalid JSON",
		})
		return
	}

	res, err := s.opts.Feedback.Generate(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feedback.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, feedbackResponse{Result: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{Result: res})
}
