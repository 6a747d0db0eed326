package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codelens/codelens/internal/llm/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client speaks the OpenAI chat-completions dialect. Any endpoint exposing
// the same dialect works through BaseURL.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient trims the supplied endpoint and key, falling back to the public
// OpenAI API when no endpoint is given.
func NewClient(baseURL, apiKey string) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}

	return &Client{
		BaseURL: base,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name identifies this driver in logs and config.
func (c *Client) Name() string {
	return "openai"
}

// Complete renders one chat-completion round trip for the request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, &driver.FatalError{Err: fmt.Errorf("openai client not configured")}
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, &driver.FatalError{Err: fmt.Errorf("api key is required")}
	}

	payload, err := newChatRequest(req)
	if err != nil {
		return nil, &driver.FatalError{Err: err}
	}

	respBody, err := driver.Exchange{
		Provider: "openai",
		URL:      strings.TrimRight(c.BaseURL, "/") + "/chat/completions",
		APIKey:   c.APIKey,
		Client:   c.HTTPClient,
		Timeout:  c.Timeout,
	}.Post(ctx, payload)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}

	return driverResponse(&parsed, respBody)
}
