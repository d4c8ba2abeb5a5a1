// Package apperr defines the error kinds surfaced at the HTTP boundary and
// their fixed status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// Error carries a Kind, a safe client message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error      { return New(KindValidation, msg) }
func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }

// Internal hides the cause from clients; it is kept for logging only.
func Internal(err error) *Error { return Wrap(KindInternal, "internal error", err) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable machine-readable code sent to clients.
func Code(k Kind) string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// APIError is the JSON error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the root error object: {"error": {...}}.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP converts err into a status and a body that never leaks internal causes.
func ToHTTP(err error) (int, ErrorResponse) {
	var e *Error
	if err == nil || !errors.As(err, &e) {
		return http.StatusInternalServerError, ErrorResponse{Error: APIError{Code: "internal", Message: "internal error"}}
	}
	msg := e.Message
	if e.Kind == KindInternal {
		msg = "internal error"
	}
	return Status(e.Kind), ErrorResponse{Error: APIError{Code: Code(e.Kind), Message: msg}}
}
