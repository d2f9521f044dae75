// Package server assembles the HTTP surface: document intake, status
// queries, the storage event hook, and operational endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/lingoflow/internal/errors"
	"github.com/3leaps/lingoflow/internal/server/handlers"
	"github.com/3leaps/lingoflow/internal/server/middleware"
	"github.com/3leaps/lingoflow/pkg/intake"
	"github.com/3leaps/lingoflow/pkg/status"
)

// Option configures optional server wiring.
type Option func(*Server)

// WithIntake registers the document submission endpoints.
func WithIntake(svc *intake.Service) Option {
	return func(s *Server) { s.intake = svc }
}

// WithStatusResolver registers the status endpoint.
func WithStatusResolver(resolver *status.Resolver) Option {
	return func(s *Server) { s.resolver = resolver }
}

// WithEventSink registers the storage notification hook.
func WithEventSink(sink handlers.EventSink) Option {
	return func(s *Server) { s.events = sink }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTimeouts overrides the HTTP server timeouts.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
		s.idleTimeout = idle
	}
}

// Server is the HTTP server for the translation pipeline API.
type Server struct {
	host         string
	port         int
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	intake   *intake.Service
	resolver *status.Resolver
	events   handlers.EventSink

	router chi.Router
	http   *http.Server
}

// New creates a server listening on host:port. Endpoints for services not
// wired through options are simply not registered; the operational endpoints
// are always present.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		host:         host,
		port:         port,
		logger:       zap.NewNop(),
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		idleTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(s.logger))

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if s.intake != nil {
		docs := handlers.NewDocumentsHandler(s.intake)
		r.Post("/v1/documents", docs.Submit)
		r.Post("/v1/documents/presign", docs.Presign)
	}
	if s.resolver != nil {
		st := handlers.NewStatusHandler(s.resolver)
		r.Get("/v1/status", st.Get)
	}
	if s.events != nil {
		ev := handlers.NewEventsHandler(s.events, s.logger)
		r.Post("/hooks/object-created", ev.Receive)
	}

	return r
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called. A closed-server error is swallowed so graceful shutdown reports
// nil.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
