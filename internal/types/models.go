// internal/types/models.go
package types

import (
	"fmt"
	"time"
)

// Role attributes an utterance to a participant of the call.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role string delivered by the provider or a client.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleSystem, RoleAssistant:
		return Role(s), nil
	case "bot":
		// The provider labels the assistant side "bot" in some server messages.
		return RoleAssistant, nil
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// Utterance is one turn of dialogue. It is never modified after being appended.
type Utterance struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CallStatus is the lifecycle state of a call session.
type CallStatus string

const (
	CallStatusIdle       CallStatus = "idle"
	CallStatusConnecting CallStatus = "connecting"
	CallStatusActive     CallStatus = "active"
	CallStatusFinished   CallStatus = "finished"
)

// CallKind selects the workflow a session runs.
type CallKind string

const (
	// CallKindGenerate drafts a fresh interview; it never produces feedback.
	CallKindGenerate CallKind = "generate"
	// CallKindFeedback runs the scripted interviewer and is evaluated afterwards.
	CallKindFeedback CallKind = "feedback"
)

func ParseCallKind(s string) (CallKind, error) {
	switch CallKind(s) {
	case CallKindGenerate, CallKindFeedback:
		return CallKind(s), nil
	case "interview":
		return CallKindFeedback, nil
	}
	return "", fmt.Errorf("unknown call type: %q", s)
}

type Interview struct {
	ID        InterviewID `json:"id" bson:"_id"`
	UserID    UserID      `json:"userId" bson:"userId"`
	Role      string      `json:"role" bson:"role"`
	Level     string      `json:"level" bson:"level"`
	Type      string      `json:"type" bson:"type"`
	TechStack []string    `json:"techstack" bson:"techstack"`
	Questions []string    `json:"questions" bson:"questions"`
	Finalized bool        `json:"finalized" bson:"finalized"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
}

type CategoryScore struct {
	Name    string `json:"name" bson:"name"`
	Score   int    `json:"score" bson:"score"`
	Comment string `json:"comment" bson:"comment"`
}

// FeedbackRecord is the persisted evaluation of one interview by one user.
type FeedbackRecord struct {
	ID                  FeedbackID      `json:"id" bson:"_id"`
	InterviewID         InterviewID     `json:"interviewId" bson:"interviewId"`
	UserID              UserID          `json:"userId" bson:"userId"`
	TotalScore          int             `json:"totalScore" bson:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores" bson:"categoryScores"`
	Strengths           []string        `json:"strengths" bson:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement" bson:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment" bson:"finalAssessment"`
	CreatedAt           time.Time       `json:"createdAt" bson:"createdAt"`
}

// FeedbackCategories are the scored areas of every evaluation, in the order
// they are presented and stored.
var FeedbackCategories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem Solving",
	"Cultural Fit",
	"Confidence and Clarity",
}
