package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/types"
)

type memInterviews struct {
	byID map[types.InterviewID]*types.Interview
}

func (s *memInterviews) GetInterview(ctx context.Context, id types.InterviewID) (*types.Interview, error) {
	iv, ok := s.byID[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return iv, nil
}

func (s *memInterviews) PutInterview(ctx context.Context, iv *types.Interview) error {
	s.byID[iv.ID] = iv
	return nil
}

func (s *memInterviews) LatestInterviews(ctx context.Context, excludeUser types.UserID, limit int) ([]*types.Interview, error) {
	return nil, nil
}

func (s *memInterviews) InterviewsByUser(ctx context.Context, userID types.UserID) ([]*types.Interview, error) {
	return nil, nil
}

func newResolver() *WorkflowResolver {
	return &WorkflowResolver{
		GenerateWorkflow:    "wf-generate",
		InterviewerWorkflow: "wf-interviewer",
		Interviews: &memInterviews{byID: map[types.InterviewID]*types.Interview{
			"iv-1":  {ID: "iv-1", Questions: []string{"What is a goroutine?", "Explain channels."}},
			"empty": {ID: "empty"},
		}},
	}
}

func TestResolveGenerate(t *testing.T) {
	wf, vars, err := newResolver().Resolve(context.Background(), Request{Kind: types.CallKindGenerate, UserName: "Ada", UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "wf-generate", wf)
	assert.Equal(t, map[string]any{"username": "Ada", "userid": "u-1"}, vars)
}

func TestResolveFeedback(t *testing.T) {
	wf, vars, err := newResolver().Resolve(context.Background(), Request{Kind: types.CallKindFeedback, InterviewID: "iv-1", UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "wf-interviewer", wf)
	assert.Equal(t, "- What is a goroutine?\n- Explain channels.", vars["questions"])
}

func TestResolveFeedbackErrors(t *testing.T) {
	r := newResolver()
	_, _, err := r.Resolve(context.Background(), Request{Kind: types.CallKindFeedback})
	assert.Error(t, err)

	_, _, err = r.Resolve(context.Background(), Request{Kind: types.CallKindFeedback, InterviewID: "missing"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, _, err = r.Resolve(context.Background(), Request{Kind: types.CallKindFeedback, InterviewID: "empty"})
	assert.ErrorIs(t, err, ErrNoQuestions)

	_, _, err = r.Resolve(context.Background(), Request{Kind: "other"})
	assert.Error(t, err)
}

func TestFormatQuestions(t *testing.T) {
	assert.Equal(t, "", FormatQuestions(nil))
	assert.Equal(t, "- one", FormatQuestions([]string{"one"}))
}
