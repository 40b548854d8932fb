// internal/types/interfaces.go
package types

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// DefaultLatestLimit caps LatestInterviews when the caller passes no limit.
const DefaultLatestLimit = 20

type InterviewStore interface {
	GetInterview(ctx context.Context, id InterviewID) (*Interview, error)
	PutInterview(ctx context.Context, interview *Interview) error
	// LatestInterviews returns finalized interviews not owned by excludeUser,
	// newest first, at most limit entries.
	LatestInterviews(ctx context.Context, excludeUser UserID, limit int) ([]*Interview, error)
	InterviewsByUser(ctx context.Context, userID UserID) ([]*Interview, error)
}

type FeedbackStore interface {
	// CreateFeedback allocates a new identity for the record and stores it.
	CreateFeedback(ctx context.Context, rec *FeedbackRecord) (FeedbackID, error)
	// PutFeedback writes the record under id, replacing any previous content.
	PutFeedback(ctx context.Context, id FeedbackID, rec *FeedbackRecord) error
	FeedbackByInterview(ctx context.Context, interviewID InterviewID, userID UserID) (*FeedbackRecord, error)
	CountFeedback(ctx context.Context) (int64, error)
}

// Store bundles both collections; every backend implements it.
type Store interface {
	InterviewStore
	FeedbackStore
	Close() error
}
