package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/intervoice/internal/types"
)

// Resolver picks the workflow and template variables for a request.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (workflowID string, vars map[string]any, err error)
}

var (
	// ErrNoQuestions is returned when a feedback call targets an interview
	// with no questions to ask.
	ErrNoQuestions = errors.New("interview has no questions")
	// ErrMissingInterview is returned for a feedback call without an
	// interview id.
	ErrMissingInterview = errors.New("feedback call needs an interview id")
)

// WorkflowResolver maps call kinds to the configured provider workflows.
// Generate calls receive the user's name and id; feedback calls receive
// the interview's questions as a bulleted list.
type WorkflowResolver struct {
	GenerateWorkflow    string
	InterviewerWorkflow string
	Interviews          types.InterviewStore
}

func (r *WorkflowResolver) Resolve(ctx context.Context, req Request) (string, map[string]any, error) {
	switch req.Kind {
	case types.CallKindGenerate:
		return r.GenerateWorkflow, map[string]any{
			"username": req.UserName,
			"userid":   string(req.UserID),
		}, nil
	case types.CallKindFeedback:
		if req.InterviewID == "" {
			return "", nil, ErrMissingInterview
		}
		interview, err := r.Interviews.GetInterview(ctx, req.InterviewID)
		if err != nil {
			return "", nil, fmt.Errorf("load interview %s: %w", req.InterviewID, err)
		}
		if len(interview.Questions) == 0 {
			return "", nil, fmt.Errorf("interview %s: %w", req.InterviewID, ErrNoQuestions)
		}
		return r.InterviewerWorkflow, map[string]any{
			"questions": FormatQuestions(interview.Questions),
		}, nil
	}
	return "", nil, fmt.Errorf("unknown call type: %q", req.Kind)
}

// FormatQuestions renders questions one per line, each prefixed with "- ".
func FormatQuestions(questions []string) string {
	lines := make([]string, len(questions))
	for i, q := range questions {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}
