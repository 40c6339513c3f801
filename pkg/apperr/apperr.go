// Package apperr defines the error taxonomy shared by the registry, the
// dispatcher, the relay protocol and the packet sender.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP status mapping
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindNotFound         Kind = "not_found"
	KindUnauthorized     Kind = "unauthorized"
	KindIntegrity        Kind = "integrity"
	KindRelayUnavailable Kind = "relay_unavailable"
	KindRelayRejected    Kind = "relay_rejected"
	KindTransport        Kind = "transport"
	KindInternal         Kind = "internal"
)

// Error is a classified error with a human-readable message and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed or missing input
func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

// Conflict reports a uniqueness violation
func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// NotFound reports an unknown identifier
func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

// Unauthorized reports a credential mismatch
func Unauthorized(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Integrity reports a broken registry invariant. It should never happen.
func Integrity(format string, args ...interface{}) *Error {
	return newf(KindIntegrity, format, args...)
}

// Wrap classifies an underlying error
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code used at the API boundary
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
