package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/core/engine"
	apperrors "github.com/codelens/codelens/internal/errors"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/server/handlers"
)

type stubExplainer struct{}

func (stubExplainer) Explain(ctx context.Context, sub *core.Submission) (*llm.Outcome, error) {
	return &llm.Outcome{
		Result: core.ExplanationResult{
			Explanation:  "Assigns one to x.",
			Errors:       "None",
			ImprovedCode: "x = 1",
		},
		Reply:      &llm.Reply{Status: llm.StatusSuccess, Attempts: 1},
		Provenance: core.Provenance{Provider: "completion", Attempts: 1},
	}, nil
}

func newTestServer(limit int) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}

	explain := handlers.NewExplainHandler(stubExplainer{}, &engine.Validator{})
	limiter := &engine.RateLimiter{
		Store:  engine.NewMemoryWindowStore(),
		Limit:  limit,
		Window: time.Minute,
	}

	return New(cfg, explain, limiter)
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(10)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestServerRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(10)

	req := httptest.NewRequest(http.MethodGet, "/api/explain", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Fatalf("expected error code METHOD_NOT_ALLOWED, got %s", body.Error.Code)
	}
}

func TestServerServesExplainRoute(t *testing.T) {
	srv := newTestServer(10)

	req := httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{"language":"python","code":"x = 1"}`))
	req.RemoteAddr = "203.0.113.7:4567"
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec.Header().Get("X-RateLimit-Limit") != "10" {
		t.Fatalf("expected rate limit headers, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request ID header to be set")
	}

	var resp handlers.ExplainResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Explanation == "" || resp.Errors == "" || resp.ImprovedCode == "" {
		t.Fatalf("expected all three sections populated, got %+v", resp)
	}
}

func TestServerRateLimitsExplainRoute(t *testing.T) {
	srv := newTestServer(1)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/explain", strings.NewReader(`{"language":"python","code":"x = 1"}`))
		req.RemoteAddr = "203.0.113.7:4567"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	if first := post(); first.Code != http.StatusOK {
		t.Fatalf("expected first request admitted, got %d", first.Code)
	}

	denied := post()
	if denied.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", denied.Code)
	}
	if denied.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on denial")
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(denied.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Error.Code != "RATE_LIMITED" {
		t.Fatalf("expected error code RATE_LIMITED, got %s", body.Error.Code)
	}
}

func TestServerHealthRoute(t *testing.T) {
	handlers.InitHealthManager("test")

	srv := newTestServer(10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
