// Package liberr defines the error kinds surfaced by circulation, catalog and
// user operations. Every failure a caller can act on carries a Kind and a
// human-readable reason; anything without a Kind is an internal error.
package liberr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindForbidden
	KindConflict
	KindInvalidInput
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a classified error.
type Error struct {
	Kind   Kind
	Reason string
	Err    error // optional cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(k Kind, reason string) *Error { return &Error{Kind: k, Reason: reason} }

func NotFound(reason string) *Error        { return newError(KindNotFound, reason) }
func InvalidState(reason string) *Error    { return newError(KindInvalidState, reason) }
func Forbidden(reason string) *Error       { return newError(KindForbidden, reason) }
func Conflict(reason string) *Error        { return newError(KindConflict, reason) }
func InvalidInput(reason string) *Error    { return newError(KindInvalidInput, reason) }
func Unauthenticated(reason string) *Error { return newError(KindUnauthenticated, reason) }

// Wrap attaches a kind and reason to a cause.
func Wrap(k Kind, reason string, err error) *Error {
	return &Error{Kind: k, Reason: reason, Err: err}
}

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified with kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// ReasonOf returns the human-readable reason of a classified error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
