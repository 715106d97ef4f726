package domain

import "errors"

var (
	// ErrWorldNotFound is returned when a world id does not exist
	ErrWorldNotFound = errors.New("world not found")

	// ErrInvalidCommand is returned when a generation command is malformed
	ErrInvalidCommand = errors.New("invalid generation command")

	// ErrUnknownOperation is returned for a command with an unsupported operation
	ErrUnknownOperation = errors.New("unknown generation operation")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
