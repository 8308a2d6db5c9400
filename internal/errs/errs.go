// Package errs defines the error taxonomy of a single calstatus invocation.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies where in the pipeline an error happened.
type Kind string

const (
	KindFetch      Kind = "FetchError"
	KindResolution Kind = "ResolutionError"
	KindPublish    Kind = "PublishError"
)

// Error is a typed pipeline error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports a match when target is an *Error of the same Kind with no
// wrapped cause, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Err == nil && t.Op == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrFetch      = &Error{Kind: KindFetch}
	ErrResolution = &Error{Kind: KindResolution}
	ErrPublish    = &Error{Kind: KindPublish}
)

// Wrap attaches a kind and operation to err. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Fetch wraps err as a FetchError.
func Fetch(op string, err error) error { return Wrap(KindFetch, op, err) }

// Resolution wraps err as a ResolutionError.
func Resolution(op string, err error) error { return Wrap(KindResolution, op, err) }

// Publish wraps err as a PublishError.
func Publish(op string, err error) error { return Wrap(KindPublish, op, err) }

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
