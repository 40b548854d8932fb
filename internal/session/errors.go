package session

import "errors"

var (
	// ErrInvalidTransition is returned when Start is called on a session that
	// is already connecting or active.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotFound is returned by the manager for unknown session ids.
	ErrNotFound = errors.New("session not found")
	// ErrStale is returned by Start when the session was disconnected while
	// the call was being initiated. The late call is hung up.
	ErrStale = errors.New("session changed during initiation")
)
