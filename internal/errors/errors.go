package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound        = stderrors.New("not found")
	ErrForbidden       = stderrors.New("forbidden")
	ErrUnauthenticated = stderrors.New("unauthenticated")
	ErrConflict        = stderrors.New("conflict")
	ErrUnavailable     = stderrors.New("service unavailable")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
