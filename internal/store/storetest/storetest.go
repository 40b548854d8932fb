// Package storetest holds the behaviour every types.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/types"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) types.Store) {
	t.Run("InterviewRoundTrip", func(t *testing.T) { testInterviewRoundTrip(t, newStore(t)) })
	t.Run("InterviewQueries", func(t *testing.T) { testInterviewQueries(t, newStore(t)) })
	t.Run("FeedbackCreateAndUpdate", func(t *testing.T) { testFeedbackCreateAndUpdate(t, newStore(t)) })
	t.Run("FeedbackPutUnknownID", func(t *testing.T) { testFeedbackPutUnknownID(t, newStore(t)) })
	t.Run("FeedbackPairReturnsNewest", func(t *testing.T) { testFeedbackPairReturnsNewest(t, newStore(t)) })
}

var base = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func testInterviewRoundTrip(t *testing.T, s types.Store) {
	ctx := context.Background()
	iv := &types.Interview{
		ID:        "iv-1",
		UserID:    "u-1",
		Role:      "Backend Engineer",
		Level:     "Senior",
		Type:      "Technical",
		TechStack: []string{"go", "postgres"},
		Questions: []string{"What is a goroutine?"},
		Finalized: true,
		CreatedAt: base,
	}
	require.NoError(t, s.PutInterview(ctx, iv))

	got, err := s.GetInterview(ctx, "iv-1")
	require.NoError(t, err)
	assert.Equal(t, iv.Role, got.Role)
	assert.Equal(t, iv.TechStack, got.TechStack)
	assert.Equal(t, iv.Questions, got.Questions)
	assert.True(t, got.CreatedAt.Equal(base))

	iv.Questions = append(iv.Questions, "Explain channels.")
	require.NoError(t, s.PutInterview(ctx, iv))
	got, err = s.GetInterview(ctx, "iv-1")
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)

	_, err = s.GetInterview(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testInterviewQueries(t *testing.T, s types.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		owner := types.UserID("u-1")
		if i%2 == 1 {
			owner = "u-2"
		}
		require.NoError(t, s.PutInterview(ctx, &types.Interview{
			ID:        types.InterviewID(fmt.Sprintf("iv-%d", i)),
			UserID:    owner,
			Finalized: i != 4,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	mine, err := s.InterviewsByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, types.InterviewID("iv-4"), mine[0].ID)
	assert.Equal(t, types.InterviewID("iv-0"), mine[2].ID)

	latest, err := s.LatestInterviews(ctx, "u-2", 0)
	require.NoError(t, err)
	require.Len(t, latest, 2, "unfinalized and excluded-user interviews are skipped")
	assert.Equal(t, types.InterviewID("iv-2"), latest[0].ID)
	assert.Equal(t, types.InterviewID("iv-0"), latest[1].ID)

	capped, err := s.LatestInterviews(ctx, "nobody", 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, types.InterviewID("iv-3"), capped[0].ID)

	none, err := s.InterviewsByUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func sampleFeedback(score int) *types.FeedbackRecord {
	return &types.FeedbackRecord{
		InterviewID: "iv-1",
		UserID:      "u-1",
		TotalScore:  score,
		CategoryScores: []types.CategoryScore{
			{Name: "Communication Skills", Score: score, Comment: "clear"},
		},
		Strengths:           []string{"structure"},
		AreasForImprovement: []string{"depth"},
		FinalAssessment:     "Good.",
		CreatedAt:           base,
	}
}

func testFeedbackCreateAndUpdate(t *testing.T, s types.Store) {
	ctx := context.Background()

	_, err := s.FeedbackByInterview(ctx, "iv-1", "u-1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	id, err := s.CreateFeedback(ctx, sampleFeedback(70))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 70, got.TotalScore)
	assert.Equal(t, "clear", got.CategoryScores[0].Comment)

	require.NoError(t, s.PutFeedback(ctx, id, sampleFeedback(85)))
	got, err = s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, 85, got.TotalScore)

	n, err := s.CountFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.FeedbackByInterview(ctx, "iv-1", "u-2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testFeedbackPutUnknownID(t *testing.T, s types.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutFeedback(ctx, "fb-explicit", sampleFeedback(40)))
	got, err := s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackID("fb-explicit"), got.ID)
}

// A pair holds several records only when callers supply their own ids. The
// record created last wins; equal times fall back to the larger id.
func testFeedbackPairReturnsNewest(t *testing.T, s types.Store) {
	ctx := context.Background()
	put := func(id types.FeedbackID, score int, at time.Time) {
		t.Helper()
		rec := sampleFeedback(score)
		rec.CreatedAt = at
		require.NoError(t, s.PutFeedback(ctx, id, rec))
	}

	put("fb-a", 10, base)
	put("fb-b", 20, base.Add(time.Minute))
	put("fb-c", 30, base.Add(-time.Minute))
	got, err := s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackID("fb-b"), got.ID)
	assert.Equal(t, 20, got.TotalScore)

	put("fb-a", 40, base.Add(2*time.Minute))
	got, err = s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackID("fb-a"), got.ID)

	put("fb-z", 50, base.Add(2*time.Minute))
	got, err = s.FeedbackByInterview(ctx, "iv-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, types.FeedbackID("fb-z"), got.ID)

	n, err := s.CountFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
