// Package apperr defines the error kinds shared by the ingestion and
// recommendation pipelines. Callers classify failures with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a missing or invalid startup setting.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider marks a failed embedding or generation call.
	ErrProvider = errors.New("provider error")
	// ErrIndex marks a failed vector index query or upsert.
	ErrIndex = errors.New("index error")
	// ErrUpstreamUnavailable marks an unreachable catalog or index service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Error ties a failure to its kind and the operation that produced it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Wrap returns err classified as kind. A nil err yields a bare kind error.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Configf is shorthand for a configuration error with a formatted message.
func Configf(format string, args ...any) error {
	return Wrap(ErrConfiguration, "config", fmt.Errorf(format, args...))
}
