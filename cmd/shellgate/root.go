package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deixis/shellgate"
	"github.com/deixis/shellgate/internal/config"
	"github.com/deixis/shellgate/internal/env"
	"github.com/deixis/shellgate/internal/logging"
	"github.com/deixis/shellgate/internal/pipeline"
	"github.com/deixis/shellgate/internal/report"
	"github.com/deixis/shellgate/internal/runner"
	"github.com/deixis/shellgate/internal/translate"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "shellgate",
		Short: "Run shell commands over HTTP and MCP",
		Long: `shellgate executes shell commands on this host on behalf of HTTP and MCP
clients. Commands are either submitted verbatim or translated from a
natural-language request; translated commands are checked against a denylist
of destructive operations before they run.`,
		Version:       shellgate.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: "+config.FileName+" found from the working directory upward)")

	root.AddCommand(
		newServeCmd(opts),
		newExecCmd(opts),
		newAskCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), shellgate.Version)
		},
	}
}

// app holds the components assembled from configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	runner *runner.Runner
	engine *pipeline.Engine
	disk   *report.DiskStore // nil when runs are kept in memory only
}

// newApp loads .env and the configuration, then wires the pipeline.
// Logs go to logOut. With persist unset, runs are kept in memory only:
// one-shot commands have nobody to read them back.
func newApp(opts *rootOptions, logOut io.Writer, persist bool) (*app, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	if err := env.LoadFromDir(wd); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var loaded *config.LoadResult
	if opts.configPath != "" {
		loaded, err = config.LoadFile(opts.configPath)
	} else {
		loaded, err = config.Load(wd)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	logger := logging.NewWriter(logOut, cfg.Log.Level, cfg.Log.Format)

	workdir := cfg.Workdir
	if workdir == "" {
		workdir = wd
	}
	r := &runner.Runner{
		Workdir:   workdir,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	var disk *report.DiskStore
	store := report.NewLRUStore(cfg.HistoryCapacity(), nil)
	if persist {
		disk = report.NewDiskStore(cfg.HistoryDir)
		store = report.NewLRUStore(cfg.HistoryCapacity(), disk)
	}

	tr := translate.NewGemini(translate.GeminiConfig{
		APIKey:   cfg.APIKey,
		Model:    cfg.Translator.Model,
		Endpoint: cfg.Translator.Endpoint,
		Timeout:  cfg.Translator.Timeout(),
	})

	if loaded.Path != "" {
		logger.Debug("config_loaded", "path", loaded.Path)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		runner: r,
		disk:   disk,
		engine: &pipeline.Engine{
			Runner:     r,
			Translator: tr,
			Store:      store,
			Logger:     logger,
		},
	}, nil
}

// close removes run history kept in a temp directory.
func (a *app) close() {
	if a.disk == nil {
		return
	}
	if err := a.disk.Close(); err != nil {
		a.logger.Warn("history_cleanup_failed", "error", err)
	}
}
