package llm

import (
	"context"
	"time"

	"github.com/codelens/codelens/internal/llm/driver"
	"github.com/codelens/codelens/internal/metrics"
)

const (
	defaultBackoff  = time.Second
	maxBackoffShift = 10
)

// Client wraps a driver with the retry policy. Send is total: every outcome
// is expressed as a Reply status, never as an error, so callers downstream
// of validation can stay branch-free until the HTTP boundary.
type Client struct {
	Driver        driver.Driver
	Retries       int
	Backoff       time.Duration
	RetryAfterCap time.Duration

	// sleep is swapped in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a retrying client from config.
func NewClient(cfg Config, drv driver.Driver) *Client {
	return &Client{
		Driver:        drv,
		Retries:       cfg.Retries,
		Backoff:       cfg.Backoff,
		RetryAfterCap: cfg.RetryAfterCap,
	}
}

// Send issues the request, retrying transient failures with exponential
// backoff until the budget of Retries additional attempts is exhausted. The
// returned reply is success or fatal_error; a transient failure only stays
// transient between attempts.
func (c *Client) Send(ctx context.Context, req *driver.Request) *Reply {
	if c == nil || c.Driver == nil {
		return &Reply{
			Status:  StatusFatalError,
			Failure: &Failure{Code: FailureError, Message: "upstream driver not configured"},
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := c.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	var failure *Failure
	for attempt := 0; attempt < attempts; attempt++ {
		start := time.Now()
		resp, err := c.Driver.Complete(ctx, req)
		elapsed := time.Since(start)

		if err == nil {
			metrics.RecordUpstreamAttempt(c.Driver.Name(), "success", elapsed)
			reply := &Reply{Status: StatusSuccess, Attempts: attempt + 1}
			if resp != nil {
				reply.Text = resp.Text
				reply.Raw = resp.Raw
			}
			return reply
		}

		var transient bool
		failure, transient = classifyFailure(err)
		outcome := "fatal"
		if transient {
			outcome = "transient"
		}
		metrics.RecordUpstreamAttempt(c.Driver.Name(), outcome, elapsed)

		if !transient {
			return &Reply{Status: StatusFatalError, Failure: failure, Attempts: attempt + 1}
		}
		if attempt == attempts-1 {
			break
		}

		if waitErr := c.wait(ctx, c.delayFor(attempt, retryAfterFrom(err))); waitErr != nil {
			aborted, _ := classifyFailure(waitErr)
			return &Reply{Status: StatusFatalError, Failure: aborted, Attempts: attempt + 1}
		}
	}

	if failure == nil {
		failure = &Failure{Code: FailureError, Message: "upstream request failed"}
	}
	return &Reply{Status: StatusFatalError, Failure: failure, Attempts: attempts}
}

// delayFor computes the pause before the attempt after attemptIndex failed.
// The provider's Retry-After hint wins over the computed backoff when it is
// longer; both are capped at RetryAfterCap.
func (c *Client) delayFor(attemptIndex int, retryAfter time.Duration) time.Duration {
	base := c.Backoff
	if base <= 0 {
		base = defaultBackoff
	}

	shift := attemptIndex
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	delay := base << shift

	if retryAfter > delay {
		delay = retryAfter
	}
	if c.RetryAfterCap > 0 && delay > c.RetryAfterCap {
		delay = c.RetryAfterCap
	}
	return delay
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
