package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/intervoice/internal/types"
)

func (s *Server) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	iv, err := s.opts.Store.GetInterview(r.Context(), types.InterviewID(r.PathValue("id")))
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "interview not found")
		return
	}
	if err != nil {
		slog.Error("get interview failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, iv)
}

func (s *Server) handleInterviewsByUser(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("userId")
	if user == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	list, err := s.opts.Store.InterviewsByUser(r.Context(), types.UserID(user))
	if err != nil {
		slog.Error("list interviews failed", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeInterviews(w, list)
}

func (s *Server) handleLatestInterviews(w http.ResponseWriter, r *http.Request) {
	limit := types.DefaultLatestLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	user := types.UserID(r.URL.Query().Get("userId"))
	list, err := s.opts.Store.LatestInterviews(r.Context(), user, limit)
	if err != nil {
		slog.Error("list latest interviews failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeInterviews(w, list)
}

func writeInterviews(w http.ResponseWriter, list []*types.Interview) {
	if list == nil {
		list = []*types.Interview{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	interview, user := q.Get("interviewId"), q.Get("userId")
	if interview == "" || user == "" {
		writeError(w, http.StatusBadRequest, "interviewId and userId are required")
		return
	}
	rec, err := s.opts.Store.FeedbackByInterview(r.Context(), types.InterviewID(interview), types.UserID(user))
	if errors.Is(err, types.ErrNotFound) {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}
	if err != nil {
		slog.Error("get feedback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
