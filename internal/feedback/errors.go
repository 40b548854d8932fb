package feedback

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed matches every pipeline failure with errors.Is.
var ErrGenerationFailed = errors.New("feedback generation failed")

// ErrInvalidInput is returned when the interview id, the user id or the
// transcript is missing.
var ErrInvalidInput = fmt.Errorf("%w: invalid request", ErrGenerationFailed)

// EvaluationError reports a failed or malformed structured evaluation. No
// record is written.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string { return "evaluate transcript: " + e.Err.Error() }

func (e *EvaluationError) Unwrap() error { return e.Err }

func (e *EvaluationError) Is(target error) bool { return target == ErrGenerationFailed }

// StorageError reports a failed write after a successful evaluation. The
// evaluation is lost.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + " feedback: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrGenerationFailed }
