package store

import (
	"errors"
	"fmt"
)

// Error kinds returned by backends. Every backend error wraps exactly one of
// them so callers can tell bad input from an unavailable store.
var (
	ErrNotFound    = errors.New("not found")
	ErrConstraint  = errors.New("constraint violation")
	ErrUnavailable = errors.New("storage unavailable")
)

// Wrap attaches a kind and an operation name to a backend error.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, kind: kind, err: err}
}

type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *opError) Unwrap() []error { return []error{e.kind, e.err} }

// Kind returns the storage kind of err: ErrNotFound, ErrConstraint or
// ErrUnavailable. Context cancellation and unknown errors count as
// unavailable.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConstraint):
		return ErrConstraint
	default:
		return ErrUnavailable
	}
}
