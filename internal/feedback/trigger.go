package feedback

import (
	"errors"
	"log/slog"

	"github.com/user/intervoice/internal/session"
	"github.com/user/intervoice/internal/types"
)

// Evaluates reports whether a finished session is due for feedback: only
// interviewer calls with both the interview and the user known qualify.
func Evaluates(req session.Request) bool {
	return req.Kind == types.CallKindFeedback && req.InterviewID != "" && req.UserID != ""
}

// Trigger queues one evaluation per finished session and reports the
// outcome on the session.
type Trigger struct {
	queue *Queue
}

func NewTrigger(queue *Queue) *Trigger {
	return &Trigger{queue: queue}
}

// SessionFinished is a session.FinishHandler.
func (t *Trigger) SessionFinished(m *session.Machine, snap session.Snapshot) {
	req := m.Request()
	if !Evaluates(req) {
		return
	}
	log := slog.With("session_id", string(snap.ID), "interview_id", string(req.InterviewID))

	gen := snap.Generation
	m.SetFeedback(gen, session.FeedbackOutcome{Status: session.FeedbackPending})
	err := t.queue.Enqueue(&Job{
		Request: Request{
			InterviewID: req.InterviewID,
			UserID:      req.UserID,
			Transcript:  snap.Transcript,
			FeedbackID:  req.FeedbackID,
		},
		OnComplete: func(res *Result, err error) {
			if !m.SetFeedback(gen, outcome(res, err)) {
				log.Info("feedback outcome for a replaced call not shown", "feedback_id", feedbackID(res))
			}
		},
	})
	if err != nil {
		log.Error("enqueue feedback", "error", err)
		m.SetFeedback(gen, outcome(nil, errors.Join(ErrGenerationFailed, err)))
		return
	}
	log.Info("feedback queued", "utterances", len(snap.Transcript))
}

func feedbackID(res *Result) string {
	if res == nil {
		return ""
	}
	return string(res.FeedbackID)
}

func outcome(res *Result, err error) session.FeedbackOutcome {
	if err != nil || res == nil || !res.Success {
		out := session.FeedbackOutcome{Status: session.FeedbackFailed, Redirect: FallbackPath}
		if err != nil {
			out.Error = err.Error()
		}
		return out
	}
	return session.FeedbackOutcome{
		Status:     session.FeedbackStored,
		FeedbackID: res.FeedbackID,
		Redirect:   res.Redirect,
	}
}
