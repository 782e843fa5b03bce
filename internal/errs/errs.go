// Package errs defines the error kinds a run can fail with. Every kind is
// fatal for the run; the kind only tells the operator what broke.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// LookupFailure: a code or table entry was not found, or a bounded
	// search ran out of attempts.
	LookupFailure Kind = "LOOKUP_FAILURE"
	// UnknownColor: a radar pixel colour is outside the closed table,
	// which means the tile product changed.
	UnknownColor Kind = "UNKNOWN_COLOR"
	// TransientFetch: network or HTTP failure.
	TransientFetch Kind = "TRANSIENT_FETCH"
)

func (k Kind) Error() string { return string(k) }

// Error carries the kind, the failing operation and the cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, errs.LookupFailure) match on kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
