package store

import (
	"errors"
	"net/http"
)

// Error is a persistence failure tagged with the HTTP status it surfaces as.
// errors.Is compares statuses, so a reworded ErrNotFound still matches.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPCode returns the status e maps to.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a copy of e with msg as its message.
func (e *Error) WithMessage(msg string) *Error {
	dup := *e
	dup.Message = msg
	return &dup
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	dup := *e
	dup.Err = err
	return &dup
}

var (
	// ErrNotFound means no row matched.
	ErrNotFound = &Error{Code: http.StatusNotFound, Message: "resource not found"}
	// ErrAlreadyExists is a unique constraint violation, typically a short URL.
	ErrAlreadyExists = &Error{Code: http.StatusConflict, Message: "resource already exists"}
	// ErrInvalidInput rejects a query the store cannot run.
	ErrInvalidInput = &Error{Code: http.StatusBadRequest, Message: "invalid input"}
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
