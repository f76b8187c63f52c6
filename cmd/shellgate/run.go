package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/deixis/shellgate/internal/report"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a command verbatim",
		Long: `Run a shell command through the host shell and print the result.

Arguments are joined with spaces. Output is JSON when stdout is not a
terminal or when --json is given. Exits 1 if the command failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			run, err := a.engine.Direct(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run, jsonFlag)
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output the run as JSON")
	return cmd
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var jsonFlag bool
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Translate a natural-language request into a command and run it",
		Long: `Translate a natural-language request into one shell command, check it
against the safety denylist and run it.

Requires the translator API key in the environment (GEMINI_API_KEY by
default, loadable from .env). Exits 1 if translation, the safety check or
the command failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			run, err := a.engine.NaturalLanguage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printRun(cmd.OutOrStdout(), run, jsonFlag)
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output the run as JSON")
	return cmd
}

// printRun writes run to w and reports a failed run as exit code 1.
func printRun(w io.Writer, run *report.Run, forceJSON bool) error {
	if forceJSON || !isTerminal(w) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
	} else {
		fmt.Fprint(w, report.FormatText(run))
	}

	if !run.Result.Success {
		return &exitCodeError{code: 1}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
