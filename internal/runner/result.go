package runner

import (
	"fmt"
	"strconv"
	"time"
)

// Result is the normalized outcome of one command execution.
// Success is true iff ExitCode is 0, and Error is empty iff Success.
type Result struct {
	Command  string `json:"command"`     // the exact string that was executed
	ExitCode int    `json:"return_code"` // -1 for timeouts and launch failures
	Output   string `json:"output"`      // stdout on success, diagnostics otherwise
	Error    string `json:"error"`       // empty on success
	Success  bool   `json:"success"`
}

// TimeoutError is the Error value of a timed-out execution.
const TimeoutError = "Timeout"

func completed(command string, code int, stdout, stderr string) Result {
	if code == 0 {
		return Result{Command: command, Output: stdout, Success: true}
	}
	msg := fmt.Sprintf("Command failed with return code %d", code)
	res := Result{Command: command, ExitCode: code, Output: msg, Error: msg}
	if stderr != "" {
		res.Output = stderr
	}
	return res
}

func timedOut(command string, timeout time.Duration) Result {
	secs := strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64)
	return Result{
		Command:  command,
		ExitCode: -1,
		Output:   fmt.Sprintf("Command timed out (%s seconds)", secs),
		Error:    TimeoutError,
	}
}

func launchFailed(command string, err error) Result {
	return Result{
		Command:  command,
		ExitCode: -1,
		Output:   fmt.Sprintf("Failed to execute command: %v", err),
		Error:    err.Error(),
	}
}
