// Package apperr defines the error taxonomy shared by repositories,
// services and handlers. Callers branch with errors.Is; validation
// failures carry the offending rule in the message.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated - the caller presented no or invalid credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound - message, conversation or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNetworkUnavailable - transient store failure; the operation should
	// be retried with backoff, never silently dropped.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrValidation - the input was rejected before any write was attempted.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied - write targets a conversation the caller is not
	// a participant of.
	ErrPermissionDenied = errors.New("permission denied")
)

// Validationf builds an ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds an ErrNotFound with a formatted subject.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
