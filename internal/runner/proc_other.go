//go:build !unix

package runner

import (
	"os"
	"os/exec"
)

func defaultShell() []string {
	return []string{"cmd", "/C"}
}

func isolate(cmd *exec.Cmd) {}

func reap(cmd *exec.Cmd) {}

func exitCode(ps *os.ProcessState) int {
	return ps.ExitCode()
}
