package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: collector,
	})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	return collector
}

func TestRequestMetrics_EmitsSeriesPerOutcome(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantMetrics []string
		wantNoError bool
	}{
		{
			name:   "Success",
			status: http.StatusOK,
			wantMetrics: []string{
				"http_requests_total",
				"http_request_duration_ms",
				"http_request_size_bytes",
				"http_response_size_bytes",
			},
			wantNoError: true,
		},
		{
			name:        "ClientError",
			status:      http.StatusBadRequest,
			wantMetrics: []string{"http_requests_total", "http_errors_total"},
		},
		{
			name:        "ServerError",
			status:      http.StatusInternalServerError,
			wantMetrics: []string{"http_requests_total", "http_errors_total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := setupTelemetry(t)

			handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("response payload"))
			}))

			req := httptest.NewRequest("POST", "/test", strings.NewReader("request payload"))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			for _, name := range tt.wantMetrics {
				assert.Greater(t, collector.CountMetricsByName(name), 0,
					"expected %s to be emitted", name)
			}
			if tt.wantNoError {
				assert.Zero(t, collector.CountMetricsByName("http_errors_total"),
					"2xx responses must not count as errors")
			}
		})
	}
}

func TestRequestMetrics_PassesThroughWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.TelemetrySystem = original
	})

	var called bool
	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	assert.True(t, called, "wrapped handler must still run")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestMetrics_ChainsWithRequestID(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "trace-me-123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "trace-me-123", rec.Header().Get("X-Request-ID"))
	assert.Greater(t, collector.CountMetricsByName("http_requests_total"), 0)
}

func TestGetEndpointPattern(t *testing.T) {
	t.Run("UsesChiRoutePattern", func(t *testing.T) {
		routeCtx := chi.NewRouteContext()
		routeCtx.RoutePatterns = []string{"/api/explain"}

		req := httptest.NewRequest("GET", "/api/explain", nil)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

		assert.Equal(t, "/api/explain", getEndpointPattern(req))
	})

	t.Run("FallsBackToFixedSet", func(t *testing.T) {
		tests := []struct {
			path     string
			expected string
		}{
			{"/api/explain", "/api/explain"},
			{"/health", "/health/*"},
			{"/health/live", "/health/*"},
			{"/health/ready", "/health/*"},
			{"/health/startup", "/health/*"},
			{"/version", "/version"},
			{"/metrics", "/metrics"},
			{"/api/other/123", "/unknown"},
			{"/", "/"},
		}

		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				req := httptest.NewRequest("GET", tt.path, nil)
				assert.Equal(t, tt.expected, getEndpointPattern(req))
			})
		}
	})
}
