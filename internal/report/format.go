package report

import (
	"fmt"
	"strings"
)

// FormatText renders a run for humans: a short header followed by the
// command output.
func FormatText(run *Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", run.ID, run.Mode)
	if run.Query != "" {
		fmt.Fprintf(&b, "Query: %s\n", run.Query)
	}
	fmt.Fprintf(&b, "Command: %s\n", run.Result.Command)
	if run.Result.Success {
		fmt.Fprintf(&b, "Exit: %d ok (%s)\n", run.Result.ExitCode, run.Duration())
	} else {
		fmt.Fprintf(&b, "Exit: %d FAIL: %s (%s)\n", run.Result.ExitCode, run.Result.Error, run.Duration())
	}

	out := strings.TrimRight(run.Result.Output, "\n")
	if out != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, out)
	}
	return b.String()
}
