package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codelens/codelens/internal/llm/driver"
)

// classifyFailure maps a driver error to a normalized failure and reports
// whether the attempt may be retried. Retryable signals are HTTP 429, HTTP
// 5xx, and network-level timeouts; plain network errors are retried as well
// since they are usually as transient as a timeout.
func classifyFailure(err error) (*Failure, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Code: FailureTimeout, Message: "upstream request timed out"}, true
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Code: FailureCanceled, Message: "upstream request canceled"}, false
	}

	var fatal *driver.FatalError
	if errors.As(err, &fatal) {
		return &Failure{Code: FailureError, Message: "upstream request could not be sent", Detail: fatal.Error()}, false
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		detail := strings.TrimSpace(perr.Message)
		switch {
		case status == http.StatusTooManyRequests:
			return &Failure{Code: FailureRateLimit, Message: "upstream rate limit exceeded", Detail: detail, StatusCode: status}, true
		case status >= 500 && status <= 599:
			return &Failure{Code: FailureUnavailable, Message: "upstream service unavailable", Detail: detail, StatusCode: status}, true
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return &Failure{Code: FailureAuth, Message: "upstream authentication failed", Detail: detail, StatusCode: status}, false
		case status >= 400 && status <= 499:
			return &Failure{Code: FailureBadRequest, Message: "upstream rejected the request", Detail: detail, StatusCode: status}, false
		default:
			return &Failure{Code: FailureError, Message: "upstream request failed", Detail: detail, StatusCode: status}, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Failure{Code: FailureTimeout, Message: "upstream request timed out", Detail: err.Error()}, true
	}

	return &Failure{Code: FailureNetwork, Message: "upstream request failed", Detail: err.Error()}, true
}

// retryAfterFrom extracts the provider's Retry-After hint, if any.
func retryAfterFrom(err error) time.Duration {
	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.RetryAfter
	}
	return 0
}
