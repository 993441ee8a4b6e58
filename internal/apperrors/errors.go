// Package apperrors defines the error taxonomy shared across Crewdeck
// services. Handlers map error kinds to HTTP statuses at the boundary;
// services return these errors unmodified.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	// KindInternal is the fallthrough for unexpected failures.
	KindInternal Kind = iota
	// KindBadRequest signals missing or structurally invalid input.
	KindBadRequest
	// KindConflict signals an org-scoped uniqueness or state conflict.
	KindConflict
	// KindForbidden signals insufficient role, scope mismatch, legal hold
	// or an exhausted resource pool.
	KindForbidden
	// KindNotFound signals a missing, archived or cross-tenant entity.
	// Cross-tenant access is deliberately reported as not-found to avoid
	// leaking existence across organizations.
	KindNotFound
)

// Error is an application error with a kind, message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest creates a new bad-request error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a new forbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a new not-found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
