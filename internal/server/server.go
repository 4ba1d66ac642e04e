// Package server hosts the settings page, its JSON API and the metrics
// endpoint on the loopback interface.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed frontend/*
var frontendFS embed.FS

// Server manages the HTTP server for settings UI
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	mux        *http.ServeMux
	config     Config
	logger     *slog.Logger
	port       int
	mu         sync.Mutex
	running    bool
}

// Config holds server configuration
type Config struct {
	Port            int           // Port to listen on (0 = random)
	ReadTimeout     time.Duration // HTTP read timeout
	WriteTimeout    time.Duration // HTTP write timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout

	// Metrics, when set, is served at /metrics
	Metrics prometheus.Gatherer
	Logger  *slog.Logger
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Port:            18765,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second, // connectivity tests can take a while
		ShutdownTimeout: 5 * time.Second,
	}
}

// New creates a new HTTP server with the settings page mounted at "/"
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mux := http.NewServeMux()
	frontend, err := fs.Sub(frontendFS, "frontend")
	if err != nil {
		// The embed pattern guarantees the directory
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(frontend)))

	if config.Metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(config.Metrics, promhttp.HandlerOpts{}))
	}

	return &Server{
		mux:    mux,
		config: config,
		logger: logger,
		port:   config.Port,
	}
}

// GetMux returns the router so callers can register API routes. Routes may
// be added before or after Start.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Handler returns the full handler chain served by the listener
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	// Create listener on localhost only
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	srv := s.httpServer
	go func() {
		s.logger.Info("settings server listening", "url", s.urlLocked())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("settings server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown
	err := s.httpServer.Shutdown(ctx)
	s.running = false
	if err != nil {
		s.httpServer.Close()
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Port returns the port the server is listening on
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// URL returns the full URL to the server
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlLocked()
}

func (s *Server) urlLocked() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RegisterAPIHandler registers an API handler at the given path
func (s *Server) RegisterAPIHandler(path string, handler http.Handler) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("invalid path %q", path)
	}
	s.mux.Handle(path, handler)
	return nil
}

// isLoopbackOrigin accepts http origins on localhost or 127.0.0.1.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
		return true
	}
	return false
}

// corsMiddleware adds CORS headers for localhost-only access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !isLoopbackOrigin(origin) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
