package engine

import (
	"context"
	"sync"
	"time"

	"github.com/codelens/codelens/internal/core"
)

// RateLimiter enforces a per-client sliding window: at most Limit admissions
// within the trailing Window. State lives behind WindowStore so deployments
// can move it out of process.
type RateLimiter struct {
	Store  WindowStore
	Limit  int
	Window time.Duration
	Clock  func() time.Time

	mu        sync.Mutex
	sweepDone chan struct{}
}

// Decision reports the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// WindowStore stores per-client window state.
type WindowStore interface {
	GetWindow(ctx context.Context, clientID string) (*core.ClientWindow, error)
	PutWindow(ctx context.Context, window *core.ClientWindow) error
	DeleteWindow(ctx context.Context, clientID string) error
	PruneWindows(ctx context.Context, cutoff time.Time) (int, error)
}

// Allow decides whether a request from clientID is admitted. The read, prune,
// and append run as one unit under the limiter's lock so concurrent requests
// from the same client cannot overshoot the limit. Store failures admit the
// request and surface the error for logging.
func (r *RateLimiter) Allow(ctx context.Context, clientID string) (*Decision, error) {
	if r == nil || r.Store == nil || r.Limit <= 0 || r.Window <= 0 {
		return &Decision{Allowed: true}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	window, err := r.Store.GetWindow(ctx, clientID)
	if err != nil {
		return &Decision{Allowed: true, Limit: r.Limit}, err
	}
	if window == nil {
		window = &core.ClientWindow{ClientID: clientID}
	}

	now := r.now()
	cutoff := now.Add(-r.Window)
	count := window.Prune(cutoff)

	if count >= r.Limit {
		oldest := window.Stamps[0]
		retryAfter := oldest.Add(r.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}

		window.UpdatedAt = now
		if err := r.Store.PutWindow(ctx, window); err != nil {
			return &Decision{Allowed: false, Limit: r.Limit, RetryAfter: retryAfter, ResetAfter: retryAfter}, err
		}

		return &Decision{
			Allowed:    false,
			Limit:      r.Limit,
			Remaining:  0,
			RetryAfter: retryAfter,
			ResetAfter: retryAfter,
		}, nil
	}

	window.Stamps = append(window.Stamps, now)
	window.UpdatedAt = now
	if err := r.Store.PutWindow(ctx, window); err != nil {
		return &Decision{Allowed: true, Limit: r.Limit, Remaining: r.Limit - count - 1}, err
	}

	return &Decision{
		Allowed:    true,
		Limit:      r.Limit,
		Remaining:  r.Limit - count - 1,
		ResetAfter: window.Stamps[0].Add(r.Window).Sub(now),
	}, nil
}

// Reset clears the window for a single client.
func (r *RateLimiter) Reset(ctx context.Context, clientID string) error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.DeleteWindow(ctx, clientID)
}

// Sweep removes windows whose every stamp has aged out of the current window.
func (r *RateLimiter) Sweep(ctx context.Context) (int, error) {
	if r == nil || r.Store == nil || r.Window <= 0 {
		return 0, nil
	}
	return r.Store.PruneWindows(ctx, r.now().Add(-r.Window))
}

// StartSweeper launches a background loop that sweeps stale windows at the
// given interval. StopSweeper terminates it.
func (r *RateLimiter) StartSweeper(interval time.Duration) {
	if r == nil || interval <= 0 || r.sweepDone != nil {
		return
	}
	r.sweepDone = make(chan struct{})
	go r.sweepLoop(interval, r.sweepDone)
}

// StopSweeper stops the background sweep loop.
func (r *RateLimiter) StopSweeper() {
	if r == nil || r.sweepDone == nil {
		return
	}
	close(r.sweepDone)
	r.sweepDone = nil
}

func (r *RateLimiter) sweepLoop(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = r.Sweep(context.Background())
		case <-done:
			return
		}
	}
}

func (r *RateLimiter) now() time.Time {
	if r != nil && r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
