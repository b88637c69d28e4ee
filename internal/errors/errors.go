// Package errors defines the coded errors Scanlytics services return.
//
// The API layer maps an *Error's Code to the HTTP status and to the code
// field of the error envelope. errors.Is matches on Code alone:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // any *Error with CodeNotFound
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard library helpers, so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is the machine-readable error code sent to clients.
type Code string

// Error codes.
const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeNotFound:     http.StatusNotFound,
	CodeForbidden:    http.StatusForbidden,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeValidation:   http.StatusBadRequest,
	CodeConflict:     http.StatusConflict,
	CodeRateLimited:  http.StatusTooManyRequests,
	CodeInternal:     http.StatusInternalServerError,
}

// HTTPStatus maps c to an HTTP status. Unknown codes are 500.
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error carries a Code, a message safe to show users and optional details
// such as per-field validation messages.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the status for e's Code.
func (e *Error) HTTPStatus() int { return e.Code.HTTPStatus() }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	dup := *e
	dup.Details = details
	return &dup
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = New(CodeNotFound, "not found")
	ErrForbidden  = New(CodeForbidden, "forbidden")
	ErrValidation = New(CodeValidation, "validation error")
	ErrInternal   = New(CodeInternal, "internal error")
)

// New returns an error with code and msg.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NotFound returns a CodeNotFound error.
func NotFound(msg string) *Error { return New(CodeNotFound, msg) }

// Forbidden returns a CodeForbidden error.
func Forbidden(msg string) *Error { return New(CodeForbidden, msg) }

// Validation returns a CodeValidation error.
func Validation(msg string) *Error { return New(CodeValidation, msg) }

// Validationf returns a CodeValidation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// ValidationWithDetails returns a CodeValidation error with per-field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal returns a CodeInternal error. Its message never reaches clients.
func Internal(msg string) *Error { return New(CodeInternal, msg) }

// Wrap returns an error with code and msg whose cause is err.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}
