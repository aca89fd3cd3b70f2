package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"

	"keygate/internal/auth"

	"github.com/gorilla/mux"
)

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	config         *auth.Config
	guard          GuardInterface
	cache          auth.Cache
	logger         auth.Logger
	metrics        auth.Metrics
	handler        http.Handler
	knownPaths     map[string]struct{}
	allowedHeaders []string
}

// Option configures a Server
type Option func(*Server)

// WithAllowedHeaders adds request headers browsers may send cross-origin,
// such as the API key header
func WithAllowedHeaders(headers ...string) Option {
	return func(s *Server) {
		for _, header := range headers {
			if header != "" && !slices.Contains(s.allowedHeaders, header) {
				s.allowedHeaders = append(s.allowedHeaders, header)
			}
		}
	}
}

// NewServer creates a new HTTP server with its routes and middleware
func NewServer(config *auth.Config, guard GuardInterface, cache auth.Cache, logger auth.Logger, metrics auth.Metrics, opts ...Option) *Server {
	s := &Server{
		config:         config,
		guard:          guard,
		cache:          cache,
		logger:         logger.With("component", "server"),
		metrics:        metrics,
		knownPaths:     map[string]struct{}{"/health": {}},
		allowedHeaders: []string{"Content-Type", RequestIDHeader},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.withMiddleware(s.routes())

	s.httpServer = &http.Server{
		Addr:           config.Server.Addr(),
		Handler:        s.handler,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		IdleTimeout:    config.Server.IdleTimeout,
		MaxHeaderBytes: config.Server.MaxHeaderBytes,
	}

	return s
}

func (s *Server) routes() http.Handler {
	handlers := NewHandlers(s.guard, s.cache, s.logger, s.metrics)

	router := mux.NewRouter()
	for _, route := range Routes() {
		router.Handle(route.Path, handlers.GuardedHandler(route)).Methods(http.MethodGet).Name(route.Name)
		s.knownPaths[route.Path] = struct{}{}
	}
	router.HandleFunc("/health", handlers.HealthCheckHandler).Methods(http.MethodGet).Name("health")

	router.NotFoundHandler = http.HandlerFunc(handlers.NotFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowedHandler)

	return router
}

// Handler returns the full handler chain, for serving from tests
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Stop is called
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	return s.Serve(listener)
}

// Serve serves on an existing listener until Stop is called
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("starting HTTP server", "address", listener.Addr().String())

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("graceful shutdown failed, forcing close", "error", err)
		if closeErr := s.httpServer.Close(); closeErr != nil {
			s.logger.Error("force close failed", "error", closeErr)
			return closeErr
		}
		return err
	}

	s.logger.Info("HTTP server stopped successfully")
	return nil
}
