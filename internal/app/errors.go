package app

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned when an operation names an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError reports input that was rejected before any state changed.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
