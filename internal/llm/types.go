package llm

import "encoding/json"

// ReplyStatus classifies the outcome of an upstream exchange.
type ReplyStatus string

const (
	StatusSuccess        ReplyStatus = "success"
	StatusTransientError ReplyStatus = "transient_error"
	StatusFatalError     ReplyStatus = "fatal_error"
)

// Reply is the normalized result of an upstream exchange. Text carries the
// provider's response content when Status is success; Failure describes what
// went wrong otherwise. Attempts counts every request sent, including the
// one that succeeded.
type Reply struct {
	Status   ReplyStatus     `json:"status"`
	Text     string          `json:"text,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`
	Attempts int             `json:"attempts"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Failure captures an upstream problem without breaking the pipeline.
type Failure struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Failure codes, grouped by how the caller should respond. Timeout maps to a
// gateway timeout at the HTTP boundary; everything else fatal maps to a bad
// gateway.
const (
	FailureTimeout     = "UPSTREAM_TIMEOUT"
	FailureAuth        = "UPSTREAM_AUTH"
	FailureRateLimit   = "UPSTREAM_RATE_LIMIT"
	FailureUnavailable = "UPSTREAM_UNAVAILABLE"
	FailureBadRequest  = "UPSTREAM_BAD_REQUEST"
	FailureCanceled    = "UPSTREAM_CANCELED"
	FailureNetwork     = "UPSTREAM_NETWORK"
	FailureError       = "UPSTREAM_ERROR"
)

// IsTimeout reports whether the reply failed on an upstream timeout.
func (r *Reply) IsTimeout() bool {
	return r != nil && r.Failure != nil && r.Failure.Code == FailureTimeout
}
