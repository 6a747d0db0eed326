package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/core/engine"
	"github.com/codelens/codelens/internal/metrics"
	"github.com/codelens/codelens/internal/observability"
)

// Rate limit response headers.
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RetryAfterHeader         = "Retry-After"
)

// RateLimit gates requests through the sliding-window limiter, keyed by
// client IP. Denied requests get a 429 envelope carrying the seconds until
// the oldest admission ages out. A nil limiter admits everything.
func RateLimit(limiter *engine.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID := ClientID(r)
			decision, err := limiter.Allow(r.Context(), clientID)
			if err != nil && observability.ServerLogger != nil {
				// Admission already happened; the limiter fails open on
				// store errors.
				observability.ServerLogger.Warn("Rate limiter store error",
					zap.String("client_id", clientID),
					zap.Error(err),
				)
			}

			if decision.Limit > 0 {
				w.Header().Set(RateLimitLimitHeader, strconv.Itoa(decision.Limit))
				w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(decision.Remaining))
			}

			metrics.RecordRateLimitDecision(decision.Allowed)

			if !decision.Allowed {
				retryAfter := retryAfterSeconds(decision)
				w.Header().Set(RetryAfterHeader, strconv.Itoa(retryAfter))

				envelope := errors.NewErrorEnvelope("RATE_LIMITED", "Rate limit exceeded, try again later").
					WithCorrelationID(GetRequestID(r.Context()))
				envelope = envelope.WithDetails(map[string]interface{}{
					"limit":               decision.Limit,
					"retry_after_seconds": retryAfter,
				})

				writeErrorResponse(w, envelope, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientID derives the limiter key for a request. RealIP middleware runs
// first, so RemoteAddr already holds the forwarded client address when the
// request came through a proxy.
func ClientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds rounds the decision delay up to whole seconds. Denied
// clients always get at least one second so an immediate retry is never
// advertised.
func retryAfterSeconds(decision *engine.Decision) int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
