// Package apperr defines the error kinds surfaced by the analysis action and
// the upstream clients it calls.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for logging and user-facing messaging.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Auth returns a KindAuth error for op.
func Auth(op, msg string) error {
	return &Error{Kind: KindAuth, Op: op, Err: errors.New(msg)}
}

// Upstream returns a KindUpstream error for op.
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

// Upstreamf is Upstream with a formatted message.
func Upstreamf(op, format string, args ...any) error {
	return Upstream(op, fmt.Errorf(format, args...))
}

// Validation returns a KindValidation error for op.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Err: errors.New(msg)}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
