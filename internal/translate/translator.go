// Package translate turns natural-language requests into single-line shell
// commands using a language model.
package translate

import (
	"context"
	"errors"
)

// Translator converts a natural-language query into a candidate command.
// On success the command is a non-empty single line; otherwise the error is
// a *Error carrying the reason and the original query.
type Translator interface {
	Translate(ctx context.Context, query string) (string, error)
	Configured() bool
}

// ErrNotConfigured is the cause of every failure of an unconfigured translator.
var ErrNotConfigured = errors.New("Gemini API is not configured. Please set GEMINI_API_KEY in environment variables.")

// ErrEmptyCommand is reported when the model answered with nothing usable.
var ErrEmptyCommand = errors.New("Could not convert query to command")

// Error is a failed translation.
type Error struct {
	Query  string // original query, for context
	Reason string // human-readable reason
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(query string, err error) *Error {
	return &Error{Query: query, Reason: err.Error(), Err: err}
}

func failf(query, reason string, err error) *Error {
	return &Error{Query: query, Reason: reason, Err: err}
}
