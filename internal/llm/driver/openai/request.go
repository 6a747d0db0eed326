package openai

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/llm/driver"
)

type chatRequest struct {
	Model       string          `json:"model"`
	Messages    []promptMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// newChatRequest wraps the rendered prompt in a single user message. The
// explain pipeline folds everything into one prompt, so there is no
// multi-turn conversation to carry.
func newChatRequest(req *driver.Request) (*chatRequest, error) {
	switch {
	case req == nil:
		return nil, fmt.Errorf("request is required")
	case strings.TrimSpace(req.Model) == "":
		return nil, fmt.Errorf("model is required")
	case strings.TrimSpace(req.Prompt) == "":
		return nil, fmt.Errorf("prompt is required")
	}

	return &chatRequest{
		Model:       req.Model,
		Messages:    []promptMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil
}
