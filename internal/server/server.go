package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"net/http"
	"orderconsumer/internal/config"
	"orderconsumer/internal/interfaces"
	"time"
)

// A ConsumerRegistry gives access to the running consumers by group id
type ConsumerRegistry interface {
	List() []interfaces.ConsumerControl
	Get(groupID string) (interfaces.ConsumerControl, bool)
}

// A DeadLetterStore is the dead letter queue as seen by operators
type DeadLetterStore interface {
	interfaces.DeadLetterQueue
	GetByReason(reason string, limit int) ([]interfaces.DeadLetterMessage, error)
	Statistics() map[string]any
	GetMessageCount() int
	Clear()
}

// A LookupCache is the entity id cache as seen by operators
type LookupCache interface {
	SizeCache() int
	CapacityCache() int
	FlushCache()
}

// A HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the admin endpoints operate on
type Dependencies struct {
	Consumers   ConsumerRegistry
	DeadLetters DeadLetterStore
	Publisher   interfaces.Publisher
	ReplayTopic string
	Cache       LookupCache
	Checks      map[string]HealthCheck
}

// Server represents the admin HTTP server
type Server struct {
	httpServer *http.Server
	logger     *zerolog.Logger
	deps       Dependencies
	config     *config.Config
}

// New creates a new HTTP server instance
func New(cfg *config.Config, deps Dependencies, logger *zerolog.Logger) *Server {
	server := &Server{
		logger: logger,
		deps:   deps,
		config: cfg,
	}

	server.httpServer = &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      server.setupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Admin server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /consumers", s.handleListConsumers)
	mux.HandleFunc("POST /consumers/{group_id}/pause", s.handlePauseConsumer)
	mux.HandleFunc("POST /consumers/{group_id}/resume", s.handleResumeConsumer)

	mux.HandleFunc("GET /dead-letters", s.handleListDeadLetters)
	mux.HandleFunc("GET /dead-letters/stats", s.handleDeadLetterStats)
	mux.HandleFunc("POST /dead-letters/{id}/replay", s.handleReplayDeadLetter)
	mux.HandleFunc("DELETE /dead-letters", s.handleClearDeadLetters)

	if s.deps.Cache != nil {
		mux.HandleFunc("GET /cache", s.handleCacheSize)
		mux.HandleFunc("DELETE /cache", s.handleFlushCache)
	}

	handler := s.loggingMiddleware(mux)
	handler = s.timeoutMiddleware(handler)
	handler = s.recoveryMiddleware(handler)

	return handler
}

// loggingMiddleware adds request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			s.logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapper.statusCode).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		},
	)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// timeoutMiddleware bounds the request context
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// recoveryMiddleware handles panics and converts them to 500 errors
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					s.logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered in HTTP handler")

					http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		},
	)
}
