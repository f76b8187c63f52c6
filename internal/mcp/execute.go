package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/translate"
)

type executeParams struct {
	Cmd string `json:"cmd" jsonschema:"the shell command to run, e.g. ls -la"`
}

type naturalLanguageParams struct {
	Query string `json:"query" jsonschema:"what to do, in plain language, e.g. show disk usage of the current directory"`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	run, err := h.engine.Direct(ctx, params.Cmd)
	if err != nil {
		return errorResult(describeError(err))
	}
	return textResult(formatRun(run))
}

func (h *handler) naturalLanguageHandler(ctx context.Context, req *mcp.CallToolRequest, params naturalLanguageParams) (*mcp.CallToolResult, any, error) {
	run, err := h.engine.NaturalLanguage(ctx, params.Query)
	if err != nil {
		return errorResult(describeError(err))
	}
	return textResult(formatRun(run))
}

// describeError renders a pipeline error with the context an agent needs
// to rephrase the request.
func describeError(err error) string {
	var (
		verr *pipeline.ValidationError
		terr *translate.Error
		rerr *pipeline.RejectedError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.As(err, &terr):
		return fmt.Sprintf("%s\nQuery: %s", terr.Reason, terr.Query)
	case errors.As(err, &rerr):
		return fmt.Sprintf("%s\nQuery: %s\nTranslated command: %s", rerr.Error(), rerr.Query, rerr.Command)
	}
	return fmt.Sprintf("Server error: %v", err)
}

func formatRun(run *report.Run) string {
	var b strings.Builder
	b.WriteString(report.FormatText(run))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Inspect with inspect_run(run_id=%q).\n", run.ID)
	return b.String()
}
