package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/pageza/foodgram/backend/internal/validation"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrUnauthorized = errors.New("invalid or expired token")
)

// ValidationError carries per-field messages back to the client.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// newValidationError builds a single-field error.
func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: validation.FieldErrors{field: {msg}}}
}

// asError returns nil for an empty set so callers can write `if err := asError(f); err != nil`.
func asError(f validation.FieldErrors) error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// NonFieldErrors is the key used for errors not tied to one input field.
const NonFieldErrors = "non_field_errors"
