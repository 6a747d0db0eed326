package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/llm/driver"
)

func TestClassifyFailureStatusCodes(t *testing.T) {
	cases := []struct {
		name          string
		statusCode    int
		wantCode      string
		wantTransient bool
	}{
		{"RateLimited", 429, FailureRateLimit, true},
		{"ServerError", 500, FailureUnavailable, true},
		{"BadGateway", 502, FailureUnavailable, true},
		{"ServiceUnavailable", 503, FailureUnavailable, true},
		{"Unauthorized", 401, FailureAuth, false},
		{"Forbidden", 403, FailureAuth, false},
		{"BadRequest", 400, FailureBadRequest, false},
		{"UnprocessableEntity", 422, FailureBadRequest, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &driver.ProviderError{Provider: "completion", StatusCode: tc.statusCode, Message: "boom"}

			failure, transient := classifyFailure(err)
			require.NotNil(t, failure)
			require.Equal(t, tc.wantCode, failure.Code)
			require.Equal(t, tc.wantTransient, transient)
			require.Equal(t, tc.statusCode, failure.StatusCode)
			require.Equal(t, "boom", failure.Detail)
		})
	}
}

func TestClassifyFailureTimeouts(t *testing.T) {
	t.Run("DeadlineExceeded", func(t *testing.T) {
		failure, transient := classifyFailure(context.DeadlineExceeded)
		require.Equal(t, FailureTimeout, failure.Code)
		require.True(t, transient)
	})

	t.Run("WrappedDeadlineExceeded", func(t *testing.T) {
		failure, transient := classifyFailure(fmt.Errorf("request failed: %w", context.DeadlineExceeded))
		require.Equal(t, FailureTimeout, failure.Code)
		require.True(t, transient)
	})

	t.Run("NetworkTimeout", func(t *testing.T) {
		failure, transient := classifyFailure(timeoutError{})
		require.Equal(t, FailureTimeout, failure.Code)
		require.True(t, transient)
	})
}

func TestClassifyFailureCancellation(t *testing.T) {
	failure, transient := classifyFailure(context.Canceled)
	require.Equal(t, FailureCanceled, failure.Code)
	require.False(t, transient)
}

func TestClassifyFailureFatalErrorsNotRetried(t *testing.T) {
	err := &driver.FatalError{Err: errors.New("base url is required")}

	failure, transient := classifyFailure(err)
	require.Equal(t, FailureError, failure.Code)
	require.False(t, transient)
	require.Contains(t, failure.Detail, "base url")
}

func TestClassifyFailureNetworkErrorsRetried(t *testing.T) {
	failure, transient := classifyFailure(errors.New("dial tcp: connection refused"))
	require.Equal(t, FailureNetwork, failure.Code)
	require.True(t, transient)
}

func TestRetryAfterFrom(t *testing.T) {
	require.Equal(t, time.Duration(0), retryAfterFrom(errors.New("plain")))

	hinted := &driver.ProviderError{StatusCode: 429, RetryAfter: 30 * time.Second}
	require.Equal(t, 30*time.Second, retryAfterFrom(fmt.Errorf("wrapped: %w", hinted)))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
