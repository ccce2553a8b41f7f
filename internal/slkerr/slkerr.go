// Package slkerr defines the error-kind catalogue shared across the RPC
// bus, the document pipeline and the screen tree (spec.md §7). Every core
// error that can cross an RPC boundary is one of these kinds so that a
// Net Interface response can carry it as a plain string without losing
// the caller's ability to branch on it.
package slkerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	PathNotFound       Kind = "PathNotFound"
	AlreadyRegistered  Kind = "AlreadyRegistered"
	TypeMismatch       Kind = "TypeMismatch"
	ReversedRange      Kind = "ReversedRange"
	SupplierSizeMismatch Kind = "SupplierSizeMismatch"
	MessageTooLarge    Kind = "MessageTooLarge"
	MalformedMessage   Kind = "MalformedMessage"
	Timeout            Kind = "Timeout"
	Cancelled          Kind = "Cancelled"
	DeadlockPrevented  Kind = "DeadlockPrevented"
	AuthDenied         Kind = "AuthDenied"
	AclDenied          Kind = "AclDenied"
	DocumentClosed     Kind = "DocumentClosed"
)

// Error is the concrete error type returned by every core operation that
// can fail with one of the kinds above. It implements error and carries
// enough context to reconstruct an RPC "error" response verbatim.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Of reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
