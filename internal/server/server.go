// Package server wires the r2fm HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/andreybo/r2-file-manager/internal/errors"
	"github.com/andreybo/r2-file-manager/internal/metrics"
	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/internal/server/handlers"
	"github.com/andreybo/r2-file-manager/internal/server/middleware"
)

// Server is the HTTP server.
type Server struct {
	host   string
	port   int
	router chi.Router

	api         *handlers.API
	metricsPath string
	timeouts    Timeouts

	httpServer *http.Server
}

// Timeouts bounds the phases of a request.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithAPI mounts the file manager endpoints under /api/v1.
func WithAPI(api *handlers.API) Option {
	return func(s *Server) { s.api = api }
}

// WithMetrics serves Prometheus metrics at path.
func WithMetrics(path string) Option {
	return func(s *Server) { s.metricsPath = path }
}

// WithTimeouts sets the server timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Server) { s.timeouts = t }
}

// New creates a server listening on host:port.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host: host,
		port: port,
		timeouts: Timeouts{
			Read:  30 * time.Second,
			Write: 60 * time.Second,
			Idle:  120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(metrics.Middleware)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, metrics.Handler())
	}

	if s.api != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/tree", s.api.Tree)

			r.Get("/folders", s.api.Folder)
			r.Post("/folders", s.api.CreateFolder)
			r.Delete("/folders", s.api.DeleteFolder)

			r.Post("/files", s.api.UploadFiles)
			r.Delete("/files", s.api.DeleteFile)
			r.Get("/files/url", s.api.FileURL)
		})
	}

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Start serves until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.timeouts.Read,
		WriteTimeout: s.timeouts.Write,
		IdleTimeout:  s.timeouts.Idle,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.ServerLogger.Info("Server listening", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	observability.ServerLogger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
