package metrics

import (
	"strconv"

	"github.com/codelens/codelens/internal/observability"
)

// Error metric names
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// emitCounter increments a counter when telemetry is initialized
func emitCounter(name string, tags map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, tags)
}

// RecordError records an error envelope leaving the server, tagged with its
// code and the HTTP status it mapped to
func RecordError(errorCode string, httpStatus int) {
	emitCounter(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic records a recovered panic
func RecordPanic() {
	emitCounter(PanicsTotalName, nil)
}

// RecordErrorByEndpoint records an error against the endpoint that produced it
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	emitCounter(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
