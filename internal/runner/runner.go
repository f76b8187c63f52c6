// Package runner executes shell commands under a wall-clock timeout and
// normalizes every outcome (success, non-zero exit, timeout, launch
// failure) into a Result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// Default values for runner configuration.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB per stream
)

// waitDelay bounds how long Wait keeps reading pipes held open by
// descendants after the shell itself has exited or been killed.
const waitDelay = time.Second

// Runner executes command strings through the host shell.
// A Runner holds no per-execution state and is safe for concurrent use.
// Workdir must not be assigned once the Runner is shared; use SetWorkdir.
type Runner struct {
	Workdir   string        // empty means the current working directory
	Timeout   time.Duration // defaults to DefaultTimeout
	MaxOutput int           // bytes kept per stream; <= 0 keeps everything
	Shell     []string      // argv prefix; the command is appended last

	mu sync.RWMutex // guards Workdir
}

// SetWorkdir changes the directory later executions run in.
func (r *Runner) SetWorkdir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Workdir = dir
}

// Dir returns the directory executions run in.
func (r *Runner) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Workdir
}

// Execute runs command through the shell and blocks until it exits or the
// timeout expires. Cancellation of ctx is ignored: only the timeout stops
// the child. The child's process group is killed before Execute returns.
func (r *Runner) Execute(ctx context.Context, command string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	shell := r.Shell
	if len(shell) == 0 {
		shell = defaultShell()
	}
	argv := append(append([]string(nil), shell...), command)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir()
	cmd.WaitDelay = waitDelay
	isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	runErr := cmd.Run()
	reap(cmd)

	if runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timedOut(command, timeout)
	}
	if cmd.ProcessState == nil {
		if runErr == nil {
			runErr = errors.New("process state unavailable")
		}
		return launchFailed(command, runErr)
	}
	return completed(command, exitCode(cmd.ProcessState), stdout.String(), stderr.String())
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
