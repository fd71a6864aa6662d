package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryProtocol  Category = "protocol"
	CategorySync      Category = "sync"
	CategoryTransport Category = "transport"
	CategoryCLI       Category = "cli"
)

// MeldError is a structured error with a code, an explanation, and a hint.
type MeldError struct {
	// Code is a unique error identifier (e.g., "M001").
	Code string

	// Category is the error type (config, protocol, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *MeldError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *MeldError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a MeldError with the same code.
func (e *MeldError) Is(target error) bool {
	t, ok := target.(*MeldError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *MeldError) WithSuggestion(s string) *MeldError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *MeldError) WithDetail(d string) *MeldError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with a format string.
func (e *MeldError) WithDetailf(format string, args ...any) *MeldError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *MeldError) Wrap(err error) *MeldError {
	e.Wrapped = err
	return e
}

// New creates a MeldError from a registered error code.
func New(code string) *MeldError {
	template, ok := registry[code]
	if !ok {
		return &MeldError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &MeldError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
	}
}

// Newf creates a new MeldError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *MeldError {
	return &MeldError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a MeldError.
// An error that already is (or wraps) a MeldError is returned unchanged.
func FromError(err error, code string) *MeldError {
	if err == nil {
		return nil
	}
	var me *MeldError
	if errors.As(err, &me) {
		return me
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first MeldError in err's chain, or "".
func CodeOf(err error) string {
	var me *MeldError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}
