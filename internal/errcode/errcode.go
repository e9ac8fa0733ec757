// Package errcode defines the failure taxonomy shared across the service.
// Every propagated failure carries a machine code plus a human-readable
// message distinct from that code.
package errcode

import (
	"errors"
	"fmt"
)

// Code classifies a failure.
type Code string

const (
	Validation    Code = "VALIDATION_ERROR"
	API           Code = "API_ERROR"
	RateLimit     Code = "RATE_LIMIT_ERROR"
	Parsing       Code = "PARSING_ERROR"
	Generation    Code = "GENERATION_ERROR"
	Configuration Code = "CONFIGURATION_ERROR"
	Database      Code = "DATABASE_ERROR"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of err, or empty string if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
