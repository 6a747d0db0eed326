package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/metrics"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/server/middleware"
)

// Envelope constructors for the codes this service raises directly. Handlers
// that already hold a code build envelopes themselves; these cover the rest.

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("NOT_FOUND", message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("METHOD_NOT_ALLOWED", message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("INTERNAL_ERROR", message)
}

func NewExternalServiceError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("EXTERNAL_SERVICE_ERROR", message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("CONFIG_INVALID", message)
}

// Wrap helpers carry an underlying error plus correlation and trace IDs
// pulled from the request context.

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, "INTERNAL_ERROR", err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, "CONFIG_INVALID", err, message)
}

// wrap stamps one correlation value into both ID slots so the two never
// diverge when no request ID was available and a UUID had to be minted.
func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	correlation := correlationFrom(ctx)
	envelope := errors.NewErrorEnvelope(code, message).WithCorrelationID(correlation)
	envelope = envelope.WithTraceID(correlation)
	return attachCause(envelope, err)
}

// correlationFrom reuses the request ID when the context carries one and
// mints a fresh UUID otherwise, so every envelope stays traceable.
func correlationFrom(ctx context.Context) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return uuid.New().String()
}

// attachCause records the underlying error text in the envelope context under
// "cause". Context keys surface to API callers through responseDetails.
func attachCause(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}

	updated, ctxErr := envelope.WithContext(map[string]interface{}{
		"cause": err.Error(),
	})
	if ctxErr != nil {
		return envelope
	}
	return updated
}

// EnsureEnvelope returns the ErrorEnvelope carried anywhere in err's chain,
// unwrapping as needed. Errors with no envelope become INTERNAL_ERROR with
// the original message attached as cause.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		env := errors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	env := attachCause(errors.NewErrorEnvelope("INTERNAL_ERROR", "unexpected error"), err)
	env, _ = env.WithSeverity(errors.SeverityHigh)
	return env
}

// HTTPStatusFromCode resolves the HTTP status for an error code. Codes this
// service never returns over HTTP (and unknown codes) map to 500.
func HTTPStatusFromCode(code string) int {
	switch code {
	case "VALIDATION_FAILED":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "METHOD_NOT_ALLOWED":
		return http.StatusMethodNotAllowed
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	case "EXTERNAL_SERVICE_ERROR":
		return http.StatusBadGateway
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// responseDetails merges envelope details and context into the API-safe
// details map, with explicit details winning on key collisions.
func responseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	details := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))

	for key, value := range envelope.Details {
		details[key] = value
	}
	for key, value := range envelope.Context {
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// HTTPErrorDetail is the error payload API clients receive.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse nests the detail under an "error" key so success and
// failure bodies never share a top-level shape.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError converts err to an envelope and writes it as JSON.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope finalizes the envelope, logs it, emits error metrics,
// and writes the JSON body.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	if envelope == nil {
		envelope = EnsureEnvelope(nil)
	}

	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	if envelope.CorrelationID == "" {
		envelope = envelope.WithCorrelationID(correlationFrom(ctx))
	}

	status := HTTPStatusFromCode(envelope.Code)

	logEnvelope(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   responseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// logEnvelope writes the error to the server log, picking the level from the
// envelope severity.
func logEnvelope(envelope *errors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	write := logger.Info
	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		write = logger.Error
	case errors.SeverityMedium:
		write = logger.Warn
	}

	fields := make([]zap.Field, 0, 4+len(envelope.Context))
	fields = append(fields,
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
	)
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}
	write(envelope.Message, fields...)
}
