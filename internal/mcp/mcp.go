// Package mcp provides the shellgate MCP server, registering the command
// tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log/slog"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellgate"
	"github.com/deixis/shellgate/internal/logging"
	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *pipeline.Engine
	runner *runner.Runner // nil unless the workdir follows the client's roots
	logger *slog.Logger
}

// NewServer creates an MCP server with all shellgate tools registered.
func NewServer(engine *pipeline.Engine, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	h := &handler{
		engine: engine,
		runner: so.rootsRunner,
		logger: logging.OrDiscard(so.logger),
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	if h.runner != nil {
		mcpOpts.InitializedHandler = func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkdirFromRoots(ctx, req.Session)
		}
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "shellgate", Version: shellgate.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "execute_command",
		Description: `Run a shell command on the host and return its output.

The command runs through the host shell with a fixed timeout. A non-zero exit is
reported in the result, not as a tool error. Results are stored for inspect_run.`,
	}, h.executeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "natural_language",
		Description: `Translate a natural-language request into a single shell command and run it.

The translated command is checked against a denylist of destructive operations
before it runs; rejected or untranslatable requests are tool errors.`,
	}, h.naturalLanguageHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "inspect_run",
		Description: `Fetch the stored result of an earlier execute_command or natural_language run by its run_id.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the shellgate MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger      *slog.Logger
	rootsRunner *runner.Runner
}

// WithLogger sets the logger for tool events.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// WithRootsWorkdir makes r run commands in the first file root the client
// announces. Only suitable for single-session transports such as stdio.
func WithRootsWorkdir(r *runner.Runner) ServerOption {
	return func(o *serverOptions) {
		o.rootsRunner = r
	}
}

// updateWorkdirFromRoots queries the client for MCP roots and points the
// runner at the first file root. This is called during session
// initialization, before any tool calls.
func (h *handler) updateWorkdirFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	h.runner.SetWorkdir(u.Path)
	h.logger.Info("workdir_from_roots", "workdir", u.Path)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
