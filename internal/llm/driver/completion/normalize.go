package completion

import (
	"bytes"
	"encoding/json"
)

// normalizeText reduces a completion response body to a single text string.
// JSON bodies are searched for the conventional content locations in a fixed
// order; anything unrecognized falls back to the document itself so a reply
// is never lost. Non-JSON bodies pass through unchanged.
func normalizeText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(body)
	}

	switch value := decoded.(type) {
	case string:
		return value
	case map[string]any:
		if text, ok := fromChoices(value); ok {
			return text
		}
		if text, ok := fromCandidates(value); ok {
			return text
		}
		if text, ok := stringField(value, "content"); ok {
			return text
		}
		if text, ok := stringField(value, "text"); ok {
			return text
		}
	}

	return string(trimmed)
}

// fromChoices extracts the chat-completion shape: choices[0].message.content,
// falling back to choices[0].text.
func fromChoices(doc map[string]any) (string, bool) {
	choices, ok := doc["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	if message, ok := first["message"].(map[string]any); ok {
		if text, ok := stringField(message, "content"); ok {
			return text, true
		}
	}
	return stringField(first, "text")
}

// fromCandidates extracts the candidates[0].content.parts[0].text shape some
// providers use.
func fromCandidates(doc map[string]any) (string, bool) {
	candidates, ok := doc["candidates"].([]any)
	if !ok || len(candidates) == 0 {
		return "", false
	}
	first, ok := candidates[0].(map[string]any)
	if !ok {
		return "", false
	}
	contentBody, ok := first["content"].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := contentBody["parts"].([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}
	firstPart, ok := parts[0].(map[string]any)
	if !ok {
		return "", false
	}
	return stringField(firstPart, "text")
}

func stringField(doc map[string]any, key string) (string, bool) {
	value, ok := doc[key].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
