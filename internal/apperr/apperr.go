package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer. The first five kinds are
// operational: their message is safe to show to the caller.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstream
)

type Error struct {
	Kind    Kind
	Code    string
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

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Upstream(code, message string, err error) *Error {
	return Wrap(KindUpstream, code, message, err)
}

func Unexpected(err error) *Error {
	return Wrap(KindUnexpected, "internal_error", "Something went very wrong", err)
}

// KindOf extracts the Kind from any error in the chain, defaulting to
// KindUnexpected for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Operational reports whether the error's message may be rendered to the
// caller verbatim.
func Operational(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindUnauthorized, KindForbidden, KindNotFound, KindConflict:
		return true
	default:
		return false
	}
}

func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Errorf builds an unexpected error from a format string, for programming
// faults found deep in the call stack.
func Errorf(format string, args ...any) *Error {
	return Unexpected(fmt.Errorf(format, args...))
}
