package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/core/engine"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/metrics"
)

// defaultMaxBodyBytes bounds the request body read. JSON escaping inflates
// code well past the validator's byte limit, so this stays generous.
const defaultMaxBodyBytes = 1 << 20

// Explainer runs the explanation pipeline for a validated submission.
type Explainer interface {
	Explain(ctx context.Context, sub *core.Submission) (*llm.Outcome, error)
}

// ExplainRequest is the POST /api/explain request body.
type ExplainRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExplainResponse is the success body: the validated language echoed back
// plus the three sections parsed from the model reply. Sections the model
// omitted carry placeholder text rather than empty strings.
type ExplainResponse struct {
	Language     string `json:"language"`
	Explanation  string `json:"explanation"`
	Errors       string `json:"errors"`
	ImprovedCode string `json:"improved_code"`
}

// ExplainHandler serves code explanation requests.
type ExplainHandler struct {
	Service   Explainer
	Validator *engine.Validator
	MaxBody   int64
}

// NewExplainHandler wires the handler from its dependencies.
func NewExplainHandler(service Explainer, validator *engine.Validator) *ExplainHandler {
	return &ExplainHandler{
		Service:   service,
		Validator: validator,
	}
}

// ServeHTTP decodes, validates, and forwards a submission, then renders the
// parsed reply. Upstream failures map to TIMEOUT or EXTERNAL_SERVICE_ERROR
// envelopes; validation failures never reach the upstream.
func (h *ExplainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		respondWithError(w, r, gferrors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "Explanation service not initialized"))
		return
	}

	start := time.Now()

	var req ExplainRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody()))
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, gferrors.NewErrorEnvelope("VALIDATION_FAILED", "Request body too large"))
			return
		}
		respondWithError(w, r, gferrors.NewErrorEnvelope("VALIDATION_FAILED", "Request body must be valid JSON"))
		return
	}

	sub, verr := h.Validator.Validate(req.Language, req.Code)
	if verr != nil {
		metrics.RecordValidationFailure(string(verr.Rule))

		envelope := gferrors.NewErrorEnvelope("VALIDATION_FAILED", verr.Message)
		envelope = envelope.WithDetails(map[string]interface{}{
			"field": verr.Field,
			"rule":  string(verr.Rule),
		})
		respondWithError(w, r, envelope)
		return
	}

	outcome, err := h.Service.Explain(r.Context(), sub)
	if err != nil {
		metrics.RecordExplainRequest(string(sub.Language), false, time.Since(start))
		respondWithError(w, r, gferrors.NewErrorEnvelope("INTERNAL_ERROR", "Explanation service failed"))
		return
	}

	if outcome.Reply == nil || outcome.Reply.Status != llm.StatusSuccess {
		metrics.RecordExplainRequest(string(sub.Language), false, time.Since(start))
		respondWithError(w, r, upstreamFailureEnvelope(outcome))
		return
	}

	metrics.RecordExplainRequest(string(sub.Language), true, time.Since(start))

	response := ExplainResponse{
		Language:     string(sub.Language),
		Explanation:  outcome.Result.Explanation,
		Errors:       outcome.Result.Errors,
		ImprovedCode: outcome.Result.ImprovedCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// upstreamFailureEnvelope maps a failed reply onto the error vocabulary.
// Timeouts get their own code so callers can distinguish a slow upstream
// from a broken one.
func upstreamFailureEnvelope(outcome *llm.Outcome) *gferrors.ErrorEnvelope {
	message := "Upstream model request failed"
	details := map[string]interface{}{
		"provider": outcome.Provenance.Provider,
		"attempts": outcome.Provenance.Attempts,
	}

	reply := outcome.Reply
	if reply != nil && reply.Failure != nil && reply.Failure.Message != "" {
		message = reply.Failure.Message
	}

	code := "EXTERNAL_SERVICE_ERROR"
	if reply.IsTimeout() {
		code = "TIMEOUT"
		message = "Upstream model request timed out"
	}

	envelope := gferrors.NewErrorEnvelope(code, message)
	return envelope.WithDetails(details)
}

func (h *ExplainHandler) maxBody() int64 {
	if h.MaxBody > 0 {
		return h.MaxBody
	}
	return defaultMaxBodyBytes
}
