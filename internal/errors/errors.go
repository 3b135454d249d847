// Package errors defines the shared error sentinels the HTTP layer maps to
// status codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrInvalidInput marks errors caused by a bad request payload. Handlers map
// it to 400; anything unmarked is treated as a backend failure.
var ErrInvalidInput = stderrors.New("invalid input")

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RequiredError reports a missing required field.
func RequiredError(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// IsValidationError reports whether err stems from rejected input.
func IsValidationError(err error) bool {
	return stderrors.Is(err, ErrInvalidInput)
}
