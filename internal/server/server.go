// Package server exposes the HTTP surface of the bot: the root availability
// endpoint, the health check, and the Telegram webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/database"
	"github.com/mwalimu/mwalimubot/internal/logger"
)

const availabilityMessage = "MwalimuBot is up and running. Talk to me on Telegram!"

// Server wraps the HTTP listener serving the webhook and probe endpoints.
type Server struct {
	cfg     config.ServerConfig
	logger  *slog.Logger
	store   database.Store
	webhook http.Handler
	srv     *http.Server
}

// New creates the HTTP server. webhook is the Telegram update handler mounted
// on the webhook path.
func New(cfg config.ServerConfig, store database.Store, webhook http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  log.With("component", "http_server"),
		store:   store,
		webhook: webhook,
	}
	s.srv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.buildRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.HTTPMiddleware(s.logger))

	r.Get("/", s.handleRoot())
	r.Get("/health", s.handleHealth())
	r.Post(config.WebhookPath, s.webhook.ServeHTTP)

	return r
}

// Run starts the listener and blocks until ctx is cancelled or the server
// fails. Shutdown waits for in-flight requests up to the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// handleRoot answers the plaintext availability check.
func (s *Server) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, availabilityMessage)
	}
}

// healthResponse is the JSON response for GET /health.
type healthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Database string `json:"database"`
}

// handleHealth reports liveness plus a database ping. A failing database
// degrades the status but the process is still considered alive.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Database: "ok"}

		if s.store != nil {
			if err := s.store.Ping(r.Context()); err != nil {
				resp.Status = "degraded"
				resp.Database = err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
