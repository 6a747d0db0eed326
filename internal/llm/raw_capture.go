package llm

import "encoding/json"

// capRawBody applies the debug raw-capture policy: nil when capture is off or
// the byte limit is unset, the body itself when it fits, otherwise a copy cut
// at the limit. A cut can land mid-token, so the result is for inspection,
// not re-parsing.
func capRawBody(cfg Config, body json.RawMessage) json.RawMessage {
	limit := cfg.Debug.CaptureRawMaxBytes
	if !cfg.Debug.CaptureRawEnabled || limit <= 0 {
		return nil
	}
	if len(body) <= limit {
		return body
	}
	return append(json.RawMessage(nil), body[:limit]...)
}
