package openai

import (
	"fmt"

	"github.com/codelens/codelens/internal/llm/driver"
)

// Wire types for the chat-completions response, reduced to the fields the
// explain flow reads.
type chatResponse struct {
	Choices []responseChoice `json:"choices"`
	Usage   *tokenUsage      `json:"usage,omitempty"`
}

type responseChoice struct {
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Content string `json:"content"`
}

type tokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// driverResponse maps the first choice onto the driver response, carrying
// the raw body through for debug capture.
func driverResponse(resp *chatResponse, raw []byte) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	out := &driver.Response{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		Raw:          raw,
	}
	if resp.Usage != nil {
		out.Usage = &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
