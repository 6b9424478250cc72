package pricing

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned, wrapped in an *InputError, for every violated precondition.
var ErrInvalidInput = errors.New("pricing: invalid input")

// InputError names the field and the precondition that failed.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("pricing: invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
