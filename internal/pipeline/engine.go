// Package pipeline provides the execution engine shared by the HTTP server,
// the MCP server and the CLI. Direct commands go straight to the executor;
// natural-language queries go through the translator and the safety gate
// first.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/shellgate/internal/logging"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/runner"
	"github.com/deixis/shellgate/internal/safety"
	"github.com/deixis/shellgate/internal/translate"
)

// Executor runs a shell command to completion.
// Implemented by runner.Runner.
type Executor interface {
	Execute(ctx context.Context, command string) runner.Result
}

// Engine holds shared dependencies for all pipeline operations.
type Engine struct {
	Runner     Executor
	Translator translate.Translator
	Gate       *safety.Gate // nil selects safety.Default()
	Store      report.Store // nil disables run history
	Logger     *slog.Logger
}

// Direct executes command verbatim.
func (e *Engine) Direct(ctx context.Context, command string) (*report.Run, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, &ValidationError{Field: "cmd", Reason: "Empty command"}
	}
	run := e.execute(ctx, command)
	run.Mode = report.Manual
	e.save(run)
	return run, nil
}

// NaturalLanguage translates query into a command, checks it against the
// safety gate and executes it. Translation and safety failures are returned
// as *translate.Error and *RejectedError; no process is started for either.
func (e *Engine) NaturalLanguage(ctx context.Context, query string) (*report.Run, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "query", Reason: "Empty query"}
	}
	log := logging.OrDiscard(e.Logger)

	if e.Translator == nil {
		err := &translate.Error{Query: query, Reason: translate.ErrNotConfigured.Error(), Err: translate.ErrNotConfigured}
		log.Warn("translation_failed", "query", query, "reason", err.Reason)
		return nil, err
	}
	command, err := e.Translator.Translate(ctx, query)
	if err != nil {
		var terr *translate.Error
		if !errors.As(err, &terr) {
			terr = &translate.Error{Query: query, Reason: err.Error(), Err: err}
		}
		log.Warn("translation_failed", "query", query, "reason", terr.Reason)
		return nil, terr
	}
	command = strings.TrimSpace(command)
	if command == "" {
		err := &translate.Error{Query: query, Reason: translate.ErrEmptyCommand.Error(), Err: translate.ErrEmptyCommand}
		log.Warn("translation_failed", "query", query, "reason", err.Reason)
		return nil, err
	}

	if m, bad := e.gate().Check(command); bad {
		log.Warn("command_rejected",
			"query", query,
			"command", command,
			"rule", m.Rule.Name,
			"matched", m.Rendering,
		)
		return nil, &RejectedError{Query: query, Command: command, Rule: m.Rule.Name}
	}

	run := e.execute(ctx, command)
	run.Mode = report.NaturalLanguage
	run.Query = query
	run.ConvertedCommand = command
	e.save(run)
	return run, nil
}

// Inspect returns a previously executed run.
func (e *Engine) Inspect(runID string) (*report.Run, error) {
	if e.Store == nil {
		return nil, fmt.Errorf("%w: %s", report.ErrNotFound, runID)
	}
	return e.Store.Load(runID)
}

// TranslatorConfigured reports whether natural-language requests can succeed.
func (e *Engine) TranslatorConfigured() bool {
	return e.Translator != nil && e.Translator.Configured()
}

func (e *Engine) execute(ctx context.Context, command string) *report.Run {
	run := &report.Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	run.Result = e.Runner.Execute(ctx, command)
	run.DurationMS = time.Since(run.StartedAt).Milliseconds()

	logging.OrDiscard(e.Logger).Info("command_executed",
		"run_id", run.ID,
		"command", command,
		"return_code", run.Result.ExitCode,
		"success", run.Result.Success,
		"duration_ms", run.DurationMS,
	)
	return run
}

// save records run in the history. A failing store never fails the request.
func (e *Engine) save(run *report.Run) {
	if e.Store == nil {
		return
	}
	if err := e.Store.Save(run); err != nil {
		logging.OrDiscard(e.Logger).Error("run_save_failed", "run_id", run.ID, "error", err)
	}
}

func (e *Engine) gate() *safety.Gate {
	if e.Gate == nil {
		return safety.Default()
	}
	return e.Gate
}
