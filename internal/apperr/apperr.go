// Package apperr defines the shared error taxonomy used across the
// LSP, diff, snapshot, index, memory and question subsystems.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how a caller should react to it.
type Kind string

const (
	// Validation covers invalid arguments: non-absolute paths, missing
	// required fields, unrecognised operations.
	Validation Kind = "validation"
	// NotFound covers missing resources: files, LSP servers, snapshots
	// that require VCS but aren't under one.
	NotFound Kind = "not_found"
	// Protocol covers LSP timeouts, server error responses, and
	// non-2xx HTTP from the embedding/vector-store endpoints.
	Protocol Kind = "protocol"
	// Transport covers subprocess exit, broken pipe, connection
	// refused. The affected session is torn down.
	Transport Kind = "transport"
	// Persistence covers database write failures.
	Persistence Kind = "persistence"
	// Cancelled covers parent-task cancellation.
	Cancelled Kind = "cancelled"
)

// Error is a typed, wrappable error carrying a Kind and an optional
// actionable hint.
type Error struct {
	Kind  Kind
	Msg   string
	Hint  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, target) match when target is also an *Error
// of the same Kind (for example errors.Is(err, db.ErrNotFound) holds
// for any NotFound error); use IsKind to test against a bare Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// New constructs a plain error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return newErr(kind, format, args...)
}

// Wrap constructs an error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	e := newErr(kind, format, args...)
	e.Cause = cause
	return e
}

// WithHint attaches an actionable hint and returns the same error.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// KindOf extracts the Kind of err, or "" if err is not (or does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
