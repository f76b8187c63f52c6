package mcp

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/runner"
	"github.com/deixis/shellgate/internal/translate"
)

type stubTranslator struct{ command string }

func (s stubTranslator) Translate(context.Context, string) (string, error) {
	return s.command, nil
}

func (stubTranslator) Configured() bool { return true }

// setup creates a full shellgate MCP server + client over in-memory transports.
func setup(t *testing.T, tr translate.Translator) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	engine := &pipeline.Engine{
		Runner:     &runner.Runner{Workdir: t.TempDir(), Timeout: 10 * time.Second},
		Translator: tr,
		Store:      report.NewLRUStore(5, report.NewDiskStore(t.TempDir())),
	}
	server := NewServer(engine)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var runIDPattern = regexp.MustCompile(`Run: ([0-9a-f-]{36}) `)

func runID(t *testing.T, text string) string {
	t.Helper()
	m := runIDPattern.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no run ID in output:\n%s", text)
	}
	return m[1]
}

func TestListTools(t *testing.T) {
	cs := setup(t, nil)
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"execute_command", "natural_language", "inspect_run"} {
		if !got[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// --- execute_command ---

func TestExecuteCommand(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "execute_command", map[string]any{"cmd": "echo hello"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"(manual)", "Command: echo hello", "Exit: 0 ok", "hello", "inspect_run"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestExecuteCommand_FailureIsNotToolError(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "execute_command", map[string]any{"cmd": "exit 3"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("non-zero exit should not be a tool error: %s", text)
	}
	if !strings.Contains(text, "Exit: 3 FAIL: Command failed with return code 3") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestExecuteCommand_Empty(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "execute_command", map[string]any{"cmd": "   "})
	if !res.IsError {
		t.Fatal("expected tool error for empty command")
	}
	if text := resultText(res); text != "Empty command" {
		t.Errorf("text = %q", text)
	}
}

// --- natural_language ---

func TestNaturalLanguage(t *testing.T) {
	cs := setup(t, stubTranslator{command: "echo from-query"})
	res := callTool(t, cs, "natural_language", map[string]any{"query": "print from-query"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"(natural_language)", "Query: print from-query", "Command: echo from-query", "from-query"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestNaturalLanguage_NotConfigured(t *testing.T) {
	cs := setup(t, translate.NewGemini(translate.GeminiConfig{}))
	res := callTool(t, cs, "natural_language", map[string]any{"query": "list files"})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	text := resultText(res)
	if !strings.Contains(text, "not configured") || !strings.Contains(text, "Query: list files") {
		t.Errorf("unexpected output:\n%s", text)
	}
}

func TestNaturalLanguage_Rejected(t *testing.T) {
	cs := setup(t, stubTranslator{command: "shutdown now"})
	res := callTool(t, cs, "natural_language", map[string]any{"query": "turn it off"})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	text := resultText(res)
	if !strings.Contains(text, "Command rejected for safety reasons.") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if !strings.Contains(text, "Translated command: shutdown now") {
		t.Errorf("expected translated command, got:\n%s", text)
	}
}

// --- inspect_run ---

func TestInspectRun(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "execute_command", map[string]any{"cmd": "echo inspected"})
	id := runID(t, resultText(res))

	res = callTool(t, cs, "inspect_run", map[string]any{"run_id": id})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	var run report.Run
	if err := json.Unmarshal([]byte(text), &run); err != nil {
		t.Fatalf("inspect output is not a run: %v\n%s", err, text)
	}
	if run.ID != id || run.Result.Output != "inspected\n" || run.Mode != report.Manual {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestInspectRun_Unknown(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "inspect_run", map[string]any{"run_id": "00000000-0000-0000-0000-000000000000"})
	if !res.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(resultText(res), "run not found") {
		t.Errorf("unexpected output: %s", resultText(res))
	}
}

func TestInspectRun_Empty(t *testing.T) {
	cs := setup(t, nil)
	res := callTool(t, cs, "inspect_run", map[string]any{"run_id": ""})
	if !res.IsError || resultText(res) != "run_id is required" {
		t.Errorf("unexpected result: %v %s", res.IsError, resultText(res))
	}
}

func TestRootsWorkdir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	r := &runner.Runner{Workdir: t.TempDir(), Timeout: 10 * time.Second}
	server := NewServer(&pipeline.Engine{Runner: r}, WithRootsWorkdir(r))

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	client.AddRoots(&mcp.Root{URI: "file://" + root})
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	deadline := time.Now().Add(5 * time.Second)
	for r.Dir() != root {
		if time.Now().After(deadline) {
			t.Fatalf("workdir = %q, want %q", r.Dir(), root)
		}
		time.Sleep(10 * time.Millisecond)
	}

	res := callTool(t, cs, "execute_command", map[string]any{"cmd": "pwd"})
	if text := resultText(res); !strings.Contains(text, root) {
		t.Errorf("expected %q in output, got:\n%s", root, text)
	}
}
