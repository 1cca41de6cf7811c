package config

import (
	"errors"
	"fmt"
)

// ErrInvalid marks every configuration problem. Startup treats it as fatal.
var ErrInvalid = errors.New("invalid configuration")

// FieldError names the offending key.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
