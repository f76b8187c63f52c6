// Package report persists pipeline runs so that their results can be
// fetched again by run ID.
package report

import (
	"errors"
	"time"

	"github.com/deixis/shellgate/internal/runner"
)

// Mode identifies how a run's command was obtained.
type Mode string

const (
	// Manual is a command submitted verbatim.
	Manual Mode = "manual"
	// NaturalLanguage is a command produced by the translator.
	NaturalLanguage Mode = "natural_language"
)

// ErrNotFound is returned by Load for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Run is one executed pipeline invocation.
type Run struct {
	ID               string        `json:"id"`
	Mode             Mode          `json:"mode"`
	Query            string        `json:"original_query,omitempty"`
	ConvertedCommand string        `json:"converted_command,omitempty"`
	Result           runner.Result `json:"result"`
	StartedAt        time.Time     `json:"started_at"`
	DurationMS       int64         `json:"duration_ms"`
}

// Duration returns the wall-clock time the execution took.
func (r *Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}
