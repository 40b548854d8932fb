// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type CallID string
type InterviewID string
type FeedbackID string
type UserID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewInterviewID() InterviewID {
	return InterviewID(uuid.New().String())
}

func NewFeedbackID() FeedbackID {
	return FeedbackID(uuid.New().String())
}
