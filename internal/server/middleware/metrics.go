package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/observability"
)

// getEndpointPattern resolves the chi route pattern so metric labels stay
// low-cardinality. Requests that never matched a route collapse to a small
// fixed set.
func getEndpointPattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	switch path := r.URL.Path; path {
	case "/api/explain":
		return "/api/explain"
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case "/version", "/metrics", "/":
		return path
	default:
		return "/unknown"
	}
}

// RequestMetrics emits per-request counters, latency histograms, and size
// gauges, and writes the request completion log line.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		endpoint := getEndpointPattern(r)
		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}
		responseSize := int64(ww.BytesWritten())

		outcome := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   strconv.Itoa(status),
		}
		_ = sys.Counter("http_requests_total", 1, outcome)
		_ = sys.Histogram("http_request_duration_ms", duration, outcome)

		series := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
		}
		_ = sys.Gauge("http_request_size_bytes", float64(requestSize), series)
		_ = sys.Gauge("http_response_size_bytes", float64(responseSize), series)

		if status >= 400 {
			errorType := "client_error"
			if status >= 500 {
				errorType = "server_error"
			}
			_ = sys.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     strconv.Itoa(status),
				"error_type": errorType,
			})
		}

		// Request ID stays in logs, not metric labels.
		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", responseSize),
				zap.String("request_id", GetRequestID(r.Context())),
			)
		}
	})
}
