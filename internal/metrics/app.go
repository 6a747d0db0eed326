package metrics

import (
	"time"

	"github.com/codelens/codelens/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Explain pipeline metrics
	ExplainRequestsTotal    = "explain_requests_total"
	ExplainDuration         = "explain_duration_ms"
	ValidationFailuresTotal = "validation_failures_total"
	RateLimitDecisionsTotal = "rate_limit_decisions_total"
	ParseFallbacksTotal     = "parse_fallbacks_total"

	// Upstream provider metrics
	UpstreamAttemptsTotal = "upstream_attempts_total"
	UpstreamLatency       = "upstream_latency_ms"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordExplainRequest records a completed explain operation with its outcome
func RecordExplainRequest(language string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ExplainRequestsTotal,
			1,
			map[string]string{
				"language": language,
				"status":   status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			ExplainDuration,
			duration,
			map[string]string{
				"language": language,
			},
		)
	}
}

// RecordValidationFailure records a rejected submission by rule
func RecordValidationFailure(rule string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ValidationFailuresTotal,
			1,
			map[string]string{
				"rule": rule,
			},
		)
	}
}

// RecordRateLimitDecision records an admission decision
func RecordRateLimitDecision(allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitDecisionsTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordParseFallback records a reply section that fell back to placeholder text
func RecordParseFallback(section string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ParseFallbacksTotal,
			1,
			map[string]string{
				"section": section,
			},
		)
	}
}

// RecordUpstreamAttempt records a single upstream call attempt with its outcome
// (success, retryable, fatal) and latency
func RecordUpstreamAttempt(provider string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamAttemptsTotal,
			1,
			map[string]string{
				"provider": provider,
				"outcome":  outcome,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			UpstreamLatency,
			duration,
			map[string]string{
				"provider": provider,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
