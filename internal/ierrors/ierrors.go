// Package ierrors implements the federation-wide error taxonomy (§4.D):
// every error that crosses a connector/FDW boundary is classified as one of
// Auth, Fatal, Transient, Data or Remote so the IPC session and the query
// log can react uniformly regardless of which connector raised it.
package ierrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed classification of a federation error.
type Kind string

const (
	// Auth covers credential/authorization failures: wrong password,
	// expired token, missing grant. Never retried.
	Auth Kind = "auth"
	// Fatal covers programmer/protocol errors: malformed SQLIL, type
	// mismatches, violated invariants. Never retried; fails the current
	// request.
	Fatal Kind = "fatal"
	// Transient covers errors a retry may resolve: connection reset, pool
	// exhaustion, deadlock victim selection.
	Transient Kind = "transient"
	// Data covers constraint violations and malformed row data reported by
	// the remote source: unique violation, not-null violation, bad cast.
	Data Kind = "data"
	// Remote covers opaque failures surfaced verbatim from the remote
	// source that don't fit another bucket.
	Remote Kind = "remote"
)

// Error wraps an underlying cause with a Kind, so callers can branch on
// classification without type-asserting the source library's own error
// type. The wrapped cause's message and stack trace survive via
// github.com/pkg/errors; this package is the only one in the tree that
// imports it.
type Error struct {
	Kind Kind
	Op   string // short operation label, e.g. "postgres.Connect"
	err  error
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, err: errors.WithStack(err)}
}

func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: [%s] %s", e.Op, e.Kind, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Is allows errors.Is(err, ierrors.Auth) style checks against a bare Kind
// sentinel by comparing classification rather than identity.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

func (k Kind) Error() string { return string(k) }

// As extracts the Kind of err if it (or something it wraps) is an *Error,
// defaulting to Fatal for anything unclassified -- an error this package
// has never seen is treated as non-retryable rather than silently retried.
func As(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return Fatal
}

// Wrap annotates err with additional context while preserving its Kind
// (or classifying it Fatal if err was not already an *Error), mirroring the
// teacher's fmt.Errorf("...: %w", err) wrapping idiom but keeping the
// classification sticky across layers.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var ie *Error
	if errors.As(err, &ie) {
		return New(ie.Kind, op+": "+ie.Op, ie.err)
	}
	return New(Fatal, op, err)
}
