package vapi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingWorkflow is a caller error; it is never retried.
	ErrMissingWorkflow = errors.New("workflowId is required")
	// ErrMissingCredential means the server-side provider token is not configured.
	ErrMissingCredential = errors.New("VAPI_SERVER_TOKEN is missing")
	// ErrAllShapesRejected is matched by *NegotiationError.
	ErrAllShapesRejected = errors.New("all request shapes rejected")
)

// NegotiationError reports that every candidate shape was rejected. Attempts
// holds one entry per candidate, in the order they were tried.
type NegotiationError struct {
	Attempts []Attempt
	Hint     string
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("%s (%d attempts): %s", ErrAllShapesRejected, len(e.Attempts), e.Hint)
}

func (e *NegotiationError) Is(target error) bool {
	return target == ErrAllShapesRejected
}
