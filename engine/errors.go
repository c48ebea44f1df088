package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the document request engine, the upload
// gateway and the drip sequencer. Callers classify with errors.Is and
// map to HTTP statuses at the controller edge.
var (
	// ErrValidation marks bad input shape or a policy violation;
	// user-correctable.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a token or id that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrExpired marks a time-based terminal state.
	ErrExpired = errors.New("expired")

	// ErrConflict marks a state machine violation, e.g. a second
	// upload to an already-uploaded item.
	ErrConflict = errors.New("conflict")

	// ErrTransport marks an email/SMS/storage provider failure;
	// retryable.
	ErrTransport = errors.New("transport failure")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}
