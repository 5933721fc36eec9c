// Package failure classifies the errors goPeerScythe can meet so that callers
// can decide between "log and keep going" and "exit now".
package failure

import (
	"github.com/pkg/errors"
)

// Kind identifies a class of failure. It satisfies the error interface so it
// can be used as the target of errors.Is.
type Kind string

const (
	// ErrStartup means the node gateway cannot be reached at all. Fatal.
	ErrStartup = Kind("StartupError")

	// ErrFetch means the peer list could not be retrieved. The pass ends early.
	ErrFetch = Kind("FetchError")

	// ErrDecode means the peer list was retrieved but is malformed.
	ErrDecode = Kind("DecodeError")

	// ErrAction means a single disconnect or ban call failed.
	ErrAction = Kind("ActionError")
)

// Error satisfies the error interface and prints the kind name.
func (k Kind) Error() string {
	return string(k)
}

// Error is a classified failure. Op names what was being attempted.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	kind, ok := target.(Kind)
	return ok && kind == e.Kind
}

// New wraps err as a failure of the given kind.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err, or anything it wraps, is of the given kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
