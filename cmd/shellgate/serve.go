package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deixis/shellgate"
	"github.com/deixis/shellgate/internal/healthsrv"
	"github.com/deixis/shellgate/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may take to finish.
const shutdownTimeout = 35 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server exposing POST /execute, POST /natural-language,
GET /health and GET /runs/{id}.

When grpc_health_addr is configured, a gRPC health service is started as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listen := a.cfg.ListenAddr()
			if addr != "" {
				listen = addr
			}
			srv := server.New(listen, a.engine, a.logger)
			srv.Workdir = a.runner.Dir()
			if err := srv.Start(); err != nil {
				return err
			}

			var grpcAddr string
			if a.cfg.GRPCHealthAddr != "" {
				hs := healthsrv.New(a.cfg.GRPCHealthAddr, a.engine.TranslatorConfigured(), a.logger)
				if err := hs.Start(); err != nil {
					_ = srv.Stop(context.Background())
					return err
				}
				defer hs.Stop()
				grpcAddr = hs.ListenAddr()
			}

			printBanner(cmd.OutOrStdout(), banner{
				addr:       srv.ListenAddr(),
				grpcAddr:   grpcAddr,
				configured: a.engine.TranslatorConfigured(),
				keyEnv:     a.cfg.Translator.KeyEnv(),
			})

			<-ctx.Done()
			a.logger.Info("shutting_down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

type banner struct {
	addr       string
	grpcAddr   string
	configured bool
	keyEnv     string
}

func printBanner(w io.Writer, b banner) {
	fmt.Fprintf(w, "shellgate %s listening on http://%s\n", shellgate.Version, b.addr)
	if b.grpcAddr != "" {
		fmt.Fprintf(w, "gRPC health on %s\n", b.grpcAddr)
	}
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  POST /execute           Execute direct commands")
	fmt.Fprintln(w, "  POST /natural-language  Process natural language queries")
	fmt.Fprintln(w, "  GET  /health            Health check")
	fmt.Fprintln(w, "  GET  /runs/{id}         Fetch a stored run")
	if !b.configured {
		fmt.Fprintf(w, "\nWarning: %s not configured. Natural language processing will be disabled.\n", b.keyEnv)
	}
}
