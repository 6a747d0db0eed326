package driver

import "context"

// Driver defines the interface for completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "completion").
	Name() string
}

// Request is a provider-agnostic completion request. Prompt is the full
// rendered text; drivers wrap it in whatever envelope their wire format
// expects.
type Request struct {
	Model       string
	Prompt      string
	Temperature *float64
	MaxTokens   *int
}

// Response is a provider-agnostic completion response. Text is the
// normalized content; Raw holds the undecoded body for optional capture.
type Response struct {
	Text         string
	FinishReason string
	Usage        *Usage
	Raw          []byte
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
