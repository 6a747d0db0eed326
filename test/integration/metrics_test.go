package integration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/core/engine"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/server"
	"github.com/codelens/codelens/internal/server/handlers"
)

// stubExplainer stands in for the upstream provider so integration runs
// never spend real quota.
type stubExplainer struct{}

func (stubExplainer) Explain(ctx context.Context, sub *core.Submission) (*llm.Outcome, error) {
	return &llm.Outcome{
		Result: core.ExplanationResult{
			Explanation:  "Assigns one to x.",
			Errors:       "None",
			ImprovedCode: "x = 1",
		},
		Reply:      &llm.Reply{Status: llm.StatusSuccess, Attempts: 1},
		Provenance: core.Provenance{Provider: "completion", Attempts: 1},
	}, nil
}

// cleanupMetrics releases the exporter and telemetry globals after the test.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		if observability.PrometheusExporter != nil {
			_ = observability.PrometheusExporter.Stop()
			observability.PrometheusExporter = nil
		}
		observability.TelemetrySystem = nil
	})
}

// isPermissionError reports whether err is the OS refusing a socket bind,
// across the platform-specific spellings. Sandboxed runs skip rather than
// fail on these.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "not permitted")
}

// initMetricsOrSkip attempts to start the metrics exporter; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("metrics exporter cannot bind a socket here: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// newTestServer assembles the full router (stub upstream, in-memory limiter),
// binds to IPv4 loopback explicitly (avoiding IPv6-only defaults), and skips
// when the sandbox refuses to open sockets.
func newTestServer(t *testing.T, setup func(*chi.Mux)) (*httptest.Server, *http.Client) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
	}
	explain := handlers.NewExplainHandler(stubExplainer{}, &engine.Validator{})
	limiter := &engine.RateLimiter{
		Store:  engine.NewMemoryWindowStore(),
		Limit:  1000,
		Window: time.Minute,
	}

	srv := server.New(cfg, explain, limiter)
	if setup != nil {
		if mux, ok := srv.Handler().(*chi.Mux); ok {
			setup(mux)
		}
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("loopback listener blocked: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func postExplain(client *http.Client, serverURL string) (*http.Response, error) {
	body := bytes.NewReader([]byte(`{"language":"python","code":"x = 1"}`))
	return client.Post(serverURL+"/api/explain", "application/json", body)
}

func TestMetricsEndpoint_Integration(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info", "test", "test")

	initMetricsOrSkip(t)

	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, func(mux *chi.Mux) {
		mux.Get("/fast", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok fast"))
		})
		mux.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(40 * time.Millisecond)
			_, _ = w.Write([]byte("ok slow"))
		})
		mux.Get("/error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
	})

	serverURL := ts.URL

	const numRequests = 50
	const numWorkers = 10

	// Each worker takes a stripe of the request range so the mix of
	// endpoints stays fixed regardless of scheduling.
	doRequest := func(reqNum int) (*http.Response, error) {
		switch reqNum % 5 {
		case 0:
			return client.Get(serverURL + "/fast")
		case 1:
			return client.Get(serverURL + "/slow")
		case 2:
			return client.Get(serverURL + "/error")
		case 3:
			return postExplain(client, serverURL)
		default:
			return client.Get(serverURL + "/health")
		}
	}

	start := time.Now()

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for reqNum := offset; reqNum < numRequests; reqNum += numWorkers {
				if resp, err := doRequest(reqNum); err == nil {
					require.NoError(t, resp.Body.Close())
				}
			}
		}(worker)
	}
	wg.Wait()

	elapsed := time.Since(start)

	resp, err := client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total", "request counter series missing")
	assert.Contains(t, metricsContent, "test_http_request_duration_ms", "latency histogram series missing")
	assert.Contains(t, metricsContent, "test_explain_requests_total", "explain pipeline series missing")
	assert.Less(t, elapsed, 5*time.Second, "load phase took too long")
	t.Logf("%d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info", "test", "test")

	initMetricsOrSkip(t)

	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, nil)

	serverURL := ts.URL

	resp, err := postExplain(client, serverURL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "text/plain; version=0.0.4"),
		"expected Prometheus exposition content type, got %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	// Count exposition sample lines: non-comment, "name{labels} value" with
	// at least one labeled series among them.
	var samples, labeled int
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(strings.Fields(line)) >= 2 {
			samples++
			if strings.Contains(line, "{") {
				labeled++
			}
		}
	}
	assert.Greater(t, samples, 0, "expected Prometheus sample lines")
	assert.Greater(t, labeled, 0, "expected at least one labeled series")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info", "test", "test")

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, func(mux *chi.Mux) {
		mux.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("pong"))
		})
	})

	serverURL := ts.URL

	resp, err := client.Get(serverURL + "/ping")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
