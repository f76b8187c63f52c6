// Package healthsrv serves the standard gRPC health checking protocol so
// orchestrators can probe shellgate without speaking its HTTP API.
package healthsrv

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/deixis/shellgate/internal/logging"
)

// Service names reported by the health server. The empty name is the
// overall server status.
const (
	ExecutorService   = "shellgate.Executor"
	TranslatorService = "shellgate.Translator"
)

// Server is a gRPC server exposing grpc.health.v1.Health.
type Server struct {
	// Addr is the address to listen on (e.g., ":5001").
	Addr string

	grpc     *grpc.Server
	health   *health.Server
	logger   *slog.Logger
	listener net.Listener
	mu       sync.Mutex
	running  bool
}

// New creates a health server. The executor is always serving; the
// translator is serving only when configured.
func New(addr string, translatorConfigured bool, logger *slog.Logger) *Server {
	s := &Server{
		Addr:   addr,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		logger: logging.OrDiscard(logger),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	// Enable server reflection for grpcurl and other tools
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ExecutorService, healthpb.HealthCheckResponse_SERVING)
	s.SetTranslatorConfigured(translatorConfigured)
	return s
}

// SetTranslatorConfigured updates the translator's reported status.
func (s *Server) SetTranslatorConfigured(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(TranslatorService, status)
}

// Start listens on Addr and serves in the background.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	if err := s.serve(l); err != nil {
		l.Close()
		return err
	}
	return nil
}

// Serve serves on an existing listener in the background.
func (s *Server) Serve(l net.Listener) error {
	return s.serve(l)
}

func (s *Server) serve(l net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("health server already running")
	}
	s.listener = l
	s.running = true

	s.logger.Info("grpc_health_listening", "addr", l.Addr().String())
	go func() {
		if err := s.grpc.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error("grpc_serve_failed", "error", err)
		}
	}()
	return nil
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// ListenAddr returns the actual address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
