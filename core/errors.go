package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// APIError is a domain error carrying the machine-readable code surfaced
// to clients; the HTTP layer maps it to a status and the response envelope.
type APIError struct {
	Code    string
	Message string
}

func NewAPIError(code, message string) error {
	return &APIError{Code: code, Message: message}
}

func (err APIError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return err.Code
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the server
// should be gracefully shut down (e.g. DB integrity lost).
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
