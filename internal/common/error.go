// Package common defines shared constants and the error taxonomy used across
// Tresorly server layers. Callers should use errors.Is to match sentinel
// values and KindOf to branch on the error kind.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindConflict
	KindExternalServiceDegraded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindExternalServiceDegraded:
		return "external_service_degraded"
	default:
		return "internal"
	}
}

// Error is a tagged error. Message is safe to show to callers; Err holds the
// underlying cause and is only ever logged.
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

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with an empty message
// matches any error of its kind, so the sentinels below work as kind filters.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == e.Message || isSentinel(t)
}

func isSentinel(e *Error) bool {
	for _, s := range sentinels {
		if s == e {
			return true
		}
	}
	return false
}

var (
	// Repository-level errors.
	ErrorNotFound = &Error{Kind: KindNotFound, Message: "not found"}
	ErrorConflict = &Error{Kind: KindConflict, Message: "already exists"}

	// Service-level errors.
	ErrorInternal     = &Error{Kind: KindInternal, Message: "internal error"}
	ErrorUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrorForbidden    = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrorValidation   = &Error{Kind: KindValidation, Message: "validation error"}

	// Advisory dependencies (breach corpus) that failed without failing the caller.
	ErrorExternalServiceDegraded = &Error{Kind: KindExternalServiceDegraded, Message: "external service degraded"}

	sentinels = []*Error{
		ErrorNotFound, ErrorConflict, ErrorInternal, ErrorUnauthorized,
		ErrorForbidden, ErrorValidation, ErrorExternalServiceDegraded,
	}
)

// NewError builds a tagged error with a caller-facing message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation returns a KindValidation error with the given message.
func Validation(message string) error { return NewError(KindValidation, message) }

// NotFound returns a KindNotFound error with the given message.
func NotFound(message string) error { return NewError(KindNotFound, message) }

// Forbidden returns a KindForbidden error with the given message.
func Forbidden(message string) error { return NewError(KindForbidden, message) }

// Unauthorized returns a KindUnauthorized error with the given message.
func Unauthorized(message string) error { return NewError(KindUnauthorized, message) }

// Conflict returns a KindConflict error with the given message.
func Conflict(message string) error { return NewError(KindConflict, message) }

// Internal wraps err as a KindInternal error. The cause is kept for logging only.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: ErrorInternal.Message, Err: err}
}

// Degraded wraps err as a KindExternalServiceDegraded error.
func Degraded(err error) error {
	return &Error{Kind: KindExternalServiceDegraded, Message: ErrorExternalServiceDegraded.Message, Err: err}
}

// KindOf reports the kind of err. Untagged errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err. Untagged and internal
// errors collapse to the generic internal message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return ErrorInternal.Message
}
