package payroll

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSchedule = errors.New("invalid payroll schedule")
	ErrBelowMinimum    = errors.New("salary below statutory minimum")
	ErrUnknownMethod   = errors.New("unknown calculation method")
)

// ValidationError is the only failure Simulate reports. Message is safe to
// show to the person who filled in the form.
type ValidationError struct {
	Code    string
	Message string
	err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func belowMinimum(message string) *ValidationError {
	return &ValidationError{Code: CodeBelowMinimum, Message: message, err: ErrBelowMinimum}
}

func unknownMethod(method string) *ValidationError {
	return &ValidationError{
		Code:    CodeUnknownMethod,
		Message: fmt.Sprintf("Unsupported calculation method %q.", method),
		err:     ErrUnknownMethod,
	}
}
