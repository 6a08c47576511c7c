package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwalimu/mwalimubot/internal/config"
	"github.com/mwalimu/mwalimubot/internal/database"
)

type stubStore struct {
	database.Store
	pingErr error
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func newTestServer(t *testing.T, store database.Store, webhook http.Handler) *Server {
	t.Helper()
	if webhook == nil {
		webhook = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	cfg := config.ServerConfig{
		Port:            "0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return New(cfg, store, webhook, log)
}

func TestRootReturnsAvailabilityMessage(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "up and running") {
		t.Errorf("body = %q", body)
	}
}

func TestHealthOK(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Database != "ok" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	srv := newTestServer(t, &stubStore{pingErr: errors.New("connection refused")}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestWebhookRouteDispatchesToHandler(t *testing.T) {
	called := false
	webhook := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	srv := newTestServer(t, &stubStore{}, webhook)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, config.WebhookPath, strings.NewReader(`{"update_id":1}`))
	srv.buildRouter().ServeHTTP(rec, req)

	if !called {
		t.Error("webhook handler was not invoked")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, nil)

	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, config.WebhookPath, nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
