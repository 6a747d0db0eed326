package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/codelens/codelens/internal/metrics"
)

// HealthResponse is the aggregate health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body for individual probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by components that can report their health,
// such as the store and the upstream driver.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthManager runs registered checks and renders probe responses.
type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates an empty health manager.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds a named health check.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// runChecks executes every registered check, recording duration and
// outcome per check. A drained context marks remaining checks as timeouts.
func (hm *HealthManager) runChecks(ctx context.Context) map[string]string {
	checks := make(map[string]string)

	for name, checker := range hm.checkers {
		select {
		case <-ctx.Done():
			checks[name] = "timeout"
			metrics.RecordHealthCheck(name, false, 0)
			return checks
		default:
		}

		start := time.Now()
		err := checker.CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))

		if err != nil {
			checks[name] = "unhealthy"
		} else {
			checks[name] = "healthy"
		}
	}

	return checks
}

// overallStatus folds per-check results into one status. Any
// unhealthy check wins; timeouts degrade without failing the probe.
func (hm *HealthManager) overallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		if status == "unhealthy" {
			return "unhealthy"
		}
		if status == "degraded" || status == "timeout" {
			degraded = true
		}
	}

	if degraded {
		return "degraded"
	}
	return "healthy"
}

// HealthHandler serves the aggregate health endpoint with per-check detail.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := hm.runChecks(checkCtx)
	status := hm.overallStatus(checks)

	if status == "unhealthy" {
		respondWithError(w, r, healthEnvelope("aggregate health check failed", "", status, checks))
		return
	}

	response := HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// probeHandler builds a probe endpoint with its own check budget.
func (hm *HealthManager) probeHandler(probe string, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		checks := hm.runChecks(checkCtx)
		status := hm.overallStatus(checks)

		if status == "unhealthy" {
			respondWithError(w, r, healthEnvelope(probe+" probe failed", probe, status, checks))
			return
		}

		response := ProbeResponse{
			Status:    status,
			Timestamp: time.Now().UTC(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// LivenessHandler reports whether the process is running.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probeHandler("live", 2*time.Second)(w, r)
}

// ReadinessHandler reports whether the service can take traffic.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probeHandler("ready", 5*time.Second)(w, r)
}

// StartupHandler reports whether initialization has completed.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.probeHandler("startup", 3*time.Second)(w, r)
}

// healthEnvelope builds the SERVICE_UNAVAILABLE envelope for a failed probe,
// listing which checks dragged it down.
func healthEnvelope(message, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message)

	details := map[string]interface{}{
		"status": status,
	}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	if probe != "" {
		details["probe"] = probe
	}
	envelope = envelope.WithDetails(details)

	var unhealthy []string
	for name, result := range checks {
		if result != "healthy" {
			unhealthy = append(unhealthy, name)
		}
	}

	contextData := map[string]interface{}{
		"status": status,
	}
	if probe != "" {
		contextData["probe"] = probe
	}
	if len(unhealthy) > 0 {
		contextData["unhealthy_checks"] = unhealthy
	}
	envelope, _ = envelope.WithContext(contextData)

	return envelope
}

// Global health manager, wired during server startup.
var globalHealthManager *HealthManager

// InitHealthManager initializes the global health manager.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the global health manager.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func globalProbe(handler func(*HealthManager) http.HandlerFunc, probe string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if globalHealthManager != nil {
			handler(globalHealthManager)(w, r)
			return
		}
		respondWithError(w, r, healthEnvelope("health manager not initialized", probe, "unknown", nil))
	}
}

// HealthHandler serves the aggregate endpoint through the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	globalProbe(func(hm *HealthManager) http.HandlerFunc { return hm.HealthHandler }, "aggregate")(w, r)
}

// LivenessHandler serves the liveness probe through the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	globalProbe(func(hm *HealthManager) http.HandlerFunc { return hm.LivenessHandler }, "live")(w, r)
}

// ReadinessHandler serves the readiness probe through the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	globalProbe(func(hm *HealthManager) http.HandlerFunc { return hm.ReadinessHandler }, "ready")(w, r)
}

// StartupHandler serves the startup probe through the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	globalProbe(func(hm *HealthManager) http.HandlerFunc { return hm.StartupHandler }, "startup")(w, r)
}
