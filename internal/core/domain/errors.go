package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrUnreachable     = errors.New("collections API unreachable")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Comment errors
var (
	ErrEmptyComment = fmt.Errorf("%w: comment text is required", ErrValidation)
)

// Payment errors
var (
	ErrInvalidPhone  = fmt.Errorf("%w: phone number must be 12 digits starting with 254", ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
)

// ValidationError builds a validation error carrying a user-facing message
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// APIError is a business failure reported by the collections API
// (envelope with success=false). Message is shown to staff verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("collections API error (status %d): %s", e.StatusCode, e.Message)
}

// Is lets callers match API 404s with ErrNotFound
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
