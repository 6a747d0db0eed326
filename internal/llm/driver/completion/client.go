package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codelens/codelens/internal/llm/driver"
)

// Client implements the generic text-completion driver. The configured base
// URL is the full endpoint; the payload is the conventional {prompt,
// temperature, max_tokens} shape with bearer authentication.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "completion"
}

type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Complete sends a completion request. The response body may be any of the
// common completion shapes; normalizeText extracts the text.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, &driver.FatalError{Err: fmt.Errorf("completion client not configured")}
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, &driver.FatalError{Err: fmt.Errorf("base url is required")}
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, &driver.FatalError{Err: fmt.Errorf("api key is required")}
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, &driver.FatalError{Err: fmt.Errorf("prompt is required")}
	}

	respBody, err := driver.Exchange{
		Provider: "completion",
		URL:      c.BaseURL,
		APIKey:   c.APIKey,
		Client:   c.HTTPClient,
		Timeout:  c.Timeout,
	}.Post(ctx, completionRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &driver.Response{
		Text: normalizeText(respBody),
		Raw:  respBody,
	}, nil
}
