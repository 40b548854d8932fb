// Package feedback evaluates a finished interview transcript and stores the
// result. A run either writes exactly one record or nothing.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/intervoice/internal/guard"
	"github.com/user/intervoice/internal/prompt"
	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/pkg/llm"
)

// FallbackPath is where callers go after a failed run.
const FallbackPath = "/"

// FeedbackPath is the view of the feedback for an interview.
func FeedbackPath(id types.InterviewID) string {
	return "/interview/" + string(id) + "/feedback"
}

// Request is one evaluation job.
type Request struct {
	InterviewID types.InterviewID `json:"interviewId"`
	UserID      types.UserID      `json:"userId"`
	Transcript  []types.Utterance `json:"transcript"`
	// FeedbackID selects the record to overwrite. When empty the existing
	// record for the interview and user is reused, or a new one created.
	FeedbackID types.FeedbackID `json:"feedbackId,omitempty"`
}

// Result tells the caller where to go next.
type Result struct {
	Success    bool             `json:"success"`
	FeedbackID types.FeedbackID `json:"feedbackId,omitempty"`
	Redirect   string           `json:"redirect"`
}

// Notifier is told about every stored record.
type Notifier interface {
	FeedbackReady(ctx context.Context, rec *types.FeedbackRecord) error
}

// Pipeline runs evaluations. It never retries.
type Pipeline struct {
	gen      llm.ObjectGenerator
	store    types.FeedbackStore
	prompts  *prompt.Engine
	guard    guard.Guard
	guardTTL time.Duration
	notifier Notifier
	now      func() time.Time
}

type Option func(*Pipeline)

// WithGuard serializes runs per interview and user.
func WithGuard(g guard.Guard, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.guard = g
		p.guardTTL = ttl
	}
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(gen llm.ObjectGenerator, store types.FeedbackStore, prompts *prompt.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:      gen,
		store:    store,
		prompts:  prompts,
		guardTTL: 2 * time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func failed() *Result {
	return &Result{Success: false, Redirect: FallbackPath}
}

// Generate evaluates req.Transcript and writes the record. On failure the
// result redirects to FallbackPath and the error matches
// ErrGenerationFailed.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	switch {
	case req.InterviewID == "" || req.UserID == "":
		return failed(), fmt.Errorf("%w: interview id and user id are required", ErrInvalidInput)
	case req.Transcript == nil:
		// An empty transcript is evaluated; an absent one is not.
		return failed(), fmt.Errorf("%w: transcript is required", ErrInvalidInput)
	}
	log := slog.With("interview_id", string(req.InterviewID), "user_id", string(req.UserID))

	if p.guard != nil {
		release, err := p.guard.Acquire(ctx, string(req.InterviewID)+":"+string(req.UserID), p.guardTTL)
		if err != nil {
			log.Warn("feedback run refused", "error", err)
			return failed(), fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		defer release()
	}

	rec, err := p.evaluate(ctx, req.Transcript)
	if err != nil {
		log.Error("feedback evaluation failed", "error", err)
		return failed(), err
	}
	rec.InterviewID = req.InterviewID
	rec.UserID = req.UserID
	rec.CreatedAt = p.now()

	id, err := p.write(ctx, req, rec)
	if err != nil {
		log.Error("feedback write failed", "error", err)
		return failed(), err
	}
	log.Info("feedback stored", "feedback_id", string(id), "total_score", rec.TotalScore)

	if p.notifier != nil {
		if err := p.notifier.FeedbackReady(ctx, rec); err != nil {
			log.Warn("feedback notification failed", "error", err)
		}
	}
	return &Result{Success: true, FeedbackID: id, Redirect: FeedbackPath(req.InterviewID)}, nil
}

func (p *Pipeline) evaluate(ctx context.Context, transcript []types.Utterance) (*types.FeedbackRecord, error) {
	pr, err := p.prompts.Build(transcript)
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}
	if pr.Omitted > 0 {
		slog.Debug("transcript truncated for evaluation", "omitted", pr.Omitted)
	}
	resp, err := p.gen.GenerateObject(ctx, &llm.ObjectRequest{
		System:     pr.System,
		Prompt:     pr.User,
		SchemaName: SchemaName,
		Schema:     Schema(),
	})
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}
	if resp == nil || len(resp.Raw) == 0 {
		return nil, &EvaluationError{Err: errors.New("empty result")}
	}
	rec, err := Normalize(resp.Raw)
	if err != nil {
		return nil, &EvaluationError{Err: err}
	}
	return rec, nil
}

func (p *Pipeline) write(ctx context.Context, req Request, rec *types.FeedbackRecord) (types.FeedbackID, error) {
	id := req.FeedbackID
	if id == "" {
		existing, err := p.store.FeedbackByInterview(ctx, req.InterviewID, req.UserID)
		switch {
		case err == nil:
			id = existing.ID
		case !errors.Is(err, types.ErrNotFound):
			return "", &StorageError{Op: "lookup", Err: err}
		}
	}

	if id != "" {
		rec.ID = id
		if err := p.store.PutFeedback(ctx, id, rec); err != nil {
			return "", &StorageError{Op: "update", Err: err}
		}
		return id, nil
	}

	id, err := p.store.CreateFeedback(ctx, rec)
	if err != nil {
		return "", &StorageError{Op: "create", Err: err}
	}
	rec.ID = id
	return id, nil
}
