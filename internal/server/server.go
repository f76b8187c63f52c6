// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/deixis/shellgate/internal/logging"
	"github.com/deixis/shellgate/internal/pipeline"
)

// DefaultAddr is the address the server listens on when none is configured.
const DefaultAddr = ":5000"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server handles command and natural-language requests.
type Server struct {
	// Addr is the address to listen on (e.g., ":5000").
	Addr string

	// Engine runs the requests. Required.
	Engine *pipeline.Engine

	// Workdir is reported by /health. Empty means the process working directory.
	Workdir string

	// Logger receives request events. If nil, nothing is logged.
	Logger *slog.Logger

	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
	running  bool
}

// New creates a server for engine listening on addr.
func New(addr string, engine *pipeline.Engine, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{Addr: addr, Engine: engine, Logger: logger}
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /natural-language", s.handleNaturalLanguage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	return s.recoverer(mux)
}

// Start begins accepting connections.
// Returns an error if the server is already running or fails to listen.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	s.running = true

	log := logging.OrDiscard(s.Logger)
	log.Info("http_listening", "addr", listener.Addr().String())
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.server.Shutdown(ctx)
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

// recoverer turns a panicking handler into a 500 response.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logging.OrDiscard(s.Logger).Error("http_panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(v),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error: fmt.Sprintf("Server error: %v", v),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
