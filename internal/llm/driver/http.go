package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Exchange describes one JSON POST to a provider endpoint. Both wire drivers
// speak the same bearer-authenticated shape, so the HTTP leg lives here and
// the drivers keep only their payload and response mapping.
type Exchange struct {
	Provider string
	URL      string
	APIKey   string
	Client   *http.Client
	Timeout  time.Duration
}

// Post sends the payload and returns the body of a 2xx response. Non-2xx
// statuses come back as *ProviderError with any Retry-After hint attached;
// failures before the wire are *FatalError.
func (e Exchange) Post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("encode request: %w", err)}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &FatalError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			Provider:    e.Provider,
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(respBody)),
			RawResponse: respBody,
			RetryAfter:  ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	return respBody, nil
}
