// Package server exposes call initiation, feedback generation, live
// sessions and the provider webhook over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/session"
	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/vapi"
	"github.com/user/intervoice/internal/voice"
)

// CallInitiator runs shape negotiation for a single call.
type CallInitiator interface {
	Initiate(ctx context.Context, workflowID string, vars map[string]any) (*vapi.Handle, error)
}

// FeedbackGenerator evaluates a transcript and stores the record.
type FeedbackGenerator interface {
	Generate(ctx context.Context, req feedback.Request) (*feedback.Result, error)
}

// PublicConfig is what the browser needs to join calls itself.
type PublicConfig struct {
	WebToken              string `json:"webToken"`
	WorkflowID            string `json:"workflowId"`
	InterviewerWorkflowID string `json:"interviewerWorkflowId"`
}

type Options struct {
	Initiator CallInitiator
	Feedback  FeedbackGenerator
	Sessions  *session.Manager
	Hub       *voice.Hub
	Store     types.Store
	Public    PublicConfig
}

// Server is the HTTP handler of the service.
type Server struct {
	opts Options
	mux  *http.ServeMux
}

func New(opts Options) *Server {
	s := &Server{
		opts: opts,
		mux:  http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/config/public", s.handlePublicConfig)
	s.mux.HandleFunc("POST /api/vapi/call", s.handleCall)
	s.mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	s.mux.HandleFunc("GET /api/feedback", s.handleGetFeedback)

	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/start", s.handleStartSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleSessionMessage)
	s.mux.HandleFunc("POST /api/sessions/{id}/finish", s.handleSessionFinish)
	s.mux.HandleFunc("GET /api/sessions/{id}/stream", s.handleStream)

	s.mux.HandleFunc("GET /api/interviews", s.handleInterviewsByUser)
	s.mux.HandleFunc("GET /api/interviews/latest", s.handleLatestInterviews)
	s.mux.HandleFunc("GET /api/interviews/{id}", s.handleGetInterview)

	s.mux.HandleFunc("POST /webhook/vapi", s.handleProviderEvent)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Public)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps initiation and session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vapi.ErrMissingCredential):
		return http.StatusInternalServerError
	case errors.Is(err, vapi.ErrMissingWorkflow),
		errors.Is(err, vapi.ErrAllShapesRejected),
		errors.Is(err, session.ErrNoQuestions),
		errors.Is(err, session.ErrMissingInterview),
		errors.Is(err, types.ErrNotFound):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
