package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deixis/shellgate"
	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/runner"
	"github.com/deixis/shellgate/internal/translate"
)

// countingExecutor wraps a real runner and counts invocations.
type countingExecutor struct {
	calls atomic.Int32
	inner pipeline.Executor
}

func (c *countingExecutor) Execute(ctx context.Context, command string) runner.Result {
	c.calls.Add(1)
	return c.inner.Execute(ctx, command)
}

type panicExecutor struct{}

func (panicExecutor) Execute(context.Context, string) runner.Result {
	panic("executor exploded")
}

type stubTranslator struct{ command string }

func (s stubTranslator) Translate(context.Context, string) (string, error) {
	return s.command, nil
}

func (stubTranslator) Configured() bool { return true }

func newTestServer(t *testing.T, tr translate.Translator) (*httptest.Server, *countingExecutor) {
	t.Helper()
	exec := &countingExecutor{inner: &runner.Runner{Timeout: 5 * time.Second}}
	engine := &pipeline.Engine{
		Runner:     exec,
		Translator: tr,
		Store:      report.NewLRUStore(10, nil),
	}
	srv := New("", engine, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, exec
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func get(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return m
}

func TestExecute_RoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	status, body := post(t, ts.URL+"/execute", `{"cmd":"echo hello"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	want := map[string]any{
		"command":     "echo hello",
		"return_code": float64(0),
		"output":      "hello\n",
		"error":       "",
		"success":     true,
		"mode":        "manual",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %#v, want %#v", k, body[k], v)
		}
	}
	if id, _ := body["run_id"].(string); id == "" {
		t.Error("missing run_id")
	}
}

func TestExecute_FailureIsStillOK(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	status, body := post(t, ts.URL+"/execute", `{"cmd":"ls /definitely/not/here"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
	if body["error"] == "" {
		t.Error("error should be set for a failed command")
	}
	out, _ := body["output"].(string)
	if !strings.Contains(out, "No such file") && !strings.Contains(out, "cannot access") {
		t.Errorf("output should carry stderr, got %q", out)
	}
}

func TestExecute_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing", `{}`, "No command provided"},
		{"null", `{"cmd":null}`, "No command provided"},
		{"empty", `{"cmd":""}`, "Empty command"},
		{"blank", `{"cmd":"   "}`, "Empty command"},
		{"invalid json", `{"cmd":`, "Invalid JSON body"},
		{"wrong type", `{"cmd":42}`, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, exec := newTestServer(t, nil)
			status, body := post(t, ts.URL+"/execute", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			msg, _ := body["error"].(string)
			if !strings.HasPrefix(msg, tt.want) {
				t.Errorf("error = %q, want prefix %q", msg, tt.want)
			}
			if exec.calls.Load() != 0 {
				t.Errorf("executor called %d times", exec.calls.Load())
			}
		})
	}
}

func TestExecute_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/execute")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestNaturalLanguage_RoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, stubTranslator{command: "echo translated"})

	status, body := post(t, ts.URL+"/natural-language", `{"query":"say translated"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	want := map[string]any{
		"original_query":    "say translated",
		"converted_command": "echo translated",
		"command":           "echo translated",
		"output":            "translated\n",
		"success":           true,
		"mode":              "natural_language",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %#v, want %#v", k, body[k], v)
		}
	}
}

func TestNaturalLanguage_NotConfigured(t *testing.T) {
	ts, exec := newTestServer(t, translate.NewGemini(translate.GeminiConfig{}))

	status, body := post(t, ts.URL+"/natural-language", `{"query":"list files"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != translate.ErrNotConfigured.Error() {
		t.Errorf("error = %v", body["error"])
	}
	if body["original_query"] != "list files" || body["mode"] != "natural_language" {
		t.Errorf("missing context: %v", body)
	}
	if exec.calls.Load() != 0 {
		t.Errorf("executor called %d times, want 0", exec.calls.Load())
	}
}

func TestNaturalLanguage_Rejected(t *testing.T) {
	ts, exec := newTestServer(t, stubTranslator{command: "sudo reboot"})

	status, body := post(t, ts.URL+"/natural-language", `{"query":"restart the box"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body["error"] != "Command rejected for safety reasons." {
		t.Errorf("error = %v", body["error"])
	}
	if body["original_query"] != "restart the box" {
		t.Errorf("original_query = %v", body["original_query"])
	}
	if exec.calls.Load() != 0 {
		t.Errorf("executor called %d times, want 0", exec.calls.Load())
	}
}

func TestNaturalLanguage_BadRequests(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{}`, "No query provided"},
		{`{"query":"  "}`, "Empty query"},
	}
	for _, tt := range tests {
		ts, _ := newTestServer(t, stubTranslator{command: "ls"})
		status, body := post(t, ts.URL+"/natural-language", tt.body)
		if status != http.StatusBadRequest || body["error"] != tt.want {
			t.Errorf("%s: status %d, error %v; want 400 %q", tt.body, status, body["error"], tt.want)
		}
	}
}

func TestHealth(t *testing.T) {
	for _, tt := range []struct {
		name       string
		tr         translate.Translator
		configured bool
		service    string
	}{
		{"unconfigured", translate.NewGemini(translate.GeminiConfig{}), false, "not_configured"},
		{"configured", stubTranslator{}, true, "configured"},
		{"nil", nil, false, "not_configured"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.tr)
			status, body := get(t, ts.URL+"/health")
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			if body["status"] != "healthy" || body["version"] != shellgate.Version {
				t.Errorf("unexpected body: %v", body)
			}
			if body["translator_configured"] != tt.configured {
				t.Errorf("translator_configured = %v", body["translator_configured"])
			}
			services, _ := body["services"].(map[string]any)
			if services["translator"] != tt.service || services["command_executor"] != "ready" {
				t.Errorf("services = %v", services)
			}
			if wd, _ := body["working_directory"].(string); wd == "" {
				t.Error("missing working_directory")
			}
		})
	}
}

func TestRuns(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, body := post(t, ts.URL+"/execute", `{"cmd":"echo stored"}`)
	id, _ := body["run_id"].(string)

	status, run := get(t, ts.URL+"/runs/"+id)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if run["id"] != id || run["mode"] != "manual" {
		t.Errorf("unexpected run: %v", run)
	}
	result, _ := run["result"].(map[string]any)
	if result["output"] != "stored\n" {
		t.Errorf("result = %v", result)
	}

	status, _ = get(t, ts.URL+"/runs/00000000-0000-0000-0000-000000000000")
	if status != http.StatusNotFound {
		t.Errorf("unknown run status = %d, want 404", status)
	}
}

func TestPanicBecomes500(t *testing.T) {
	srv := New("", &pipeline.Engine{Runner: panicExecutor{}}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, body := post(t, ts.URL+"/execute", `{"cmd":"echo hi"}`)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if body["error"] != "Server error: executor exploded" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestStartStop(t *testing.T) {
	srv := New("127.0.0.1:0", &pipeline.Engine{Runner: &runner.Runner{}}, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := srv.Start(); err == nil {
		t.Error("second Start should fail")
	}
	addr := srv.ListenAddr()
	if addr == "" {
		t.Fatal("empty ListenAddr")
	}

	status, _ := get(t, "http://"+addr+"/health")
	if status != http.StatusOK {
		t.Errorf("health status = %d", status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestNaturalLanguage_EmptyTranslation(t *testing.T) {
	ts, exec := newTestServer(t, stubTranslator{command: "   "})

	status, body := post(t, ts.URL+"/natural-language", `{"query":"do nothing"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %v", status, body)
	}
	if body["error"] != "Could not convert query to command" {
		t.Errorf("error = %v", body["error"])
	}
	if body["original_query"] != "do nothing" || body["mode"] != "natural_language" {
		t.Errorf("missing context: %v", body)
	}
	if exec.calls.Load() != 0 {
		t.Errorf("executor called %d times, want 0", exec.calls.Load())
	}
}

func TestAbortHandlerIsNotRecovered(t *testing.T) {
	srv := New("", &pipeline.Engine{Runner: abortExecutor{}}, nil)
	h := srv.Handler()

	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", v)
		}
	}()
	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"cmd":"echo hi"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)
	t.Error("ServeHTTP returned normally")
}

type abortExecutor struct{}

func (abortExecutor) Execute(context.Context, string) runner.Result {
	panic(http.ErrAbortHandler)
}
