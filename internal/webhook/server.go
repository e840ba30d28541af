package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/pysentry/pysentry/internal/signature"
)

// Server represents the webhook HTTP server.
type Server struct {
	config    Config
	fetcher   Cloner
	checker   FileChecker
	results   ResultStore
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new webhook server instance.
func New(config Config, fetcher Cloner, checker FileChecker, results ResultStore, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	return &Server{
		config:    config,
		fetcher:   fetcher,
		checker:   checker,
		results:   results,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // deliveries clone and execute files inline
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/errors", s.handleErrors)
	r.Get("/healthz", s.handleHealth)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook verifies and dispatches one inbound delivery.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	sig := r.Header.Get(signatureHeader)
	if err := signature.Verify(body, sig, s.config.Secret); err != nil {
		s.logger.Warn("webhook signature verification failed",
			"request_id", middleware.GetReqID(ctx),
		)
		s.respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	deliveryID := r.Header.Get(deliveryHeader)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	event := r.Header.Get(eventHeader)
	switch event {
	case "push":
		s.handlePush(ctx, w, deliveryID, body)
	case "pull_request":
		s.handlePullRequest(ctx, w, deliveryID, body)
	default:
		s.logger.Info("ignoring event", "event", event, "delivery_id", deliveryID)
		s.respondJSON(w, http.StatusOK, IgnoredResponse{Status: "ignored", Event: event})
	}
}

// handleErrors returns the full accumulated result log in append order.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	messages, err := s.results.Messages(r.Context())
	if err != nil {
		s.logger.Error("failed to read result log", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to read result log")
		return
	}
	s.respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries, err := s.results.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read result log")
		return
	}
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Entries:       entries,
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
