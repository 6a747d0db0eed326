package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/server/handlers"
	servermw "github.com/codelens/codelens/internal/server/middleware"
)

// registerRoutes mounts all HTTP routes.
func (s *Server) registerRoutes() {
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics lives in this package so the proxy can reach HandleError.
	s.router.Get("/metrics", MetricsHandler)

	// API routes sit behind the per-client rate limiter. Health, version,
	// and metrics stay outside it so probes and scrapes are never denied.
	s.router.Route("/api", func(api chi.Router) {
		api.Use(servermw.RateLimit(s.limiter))
		api.Post("/explain", s.explain.ServeHTTP)
	})

	s.registerPprof()
	s.registerAdminEndpoint()
}

// registerPprof mounts profiling endpoints when explicitly enabled.
func (s *Server) registerPprof() {
	if !s.debug.PprofEnabled {
		return
	}

	s.router.Mount("/debug", middleware.Profiler())

	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn("pprof endpoints enabled at /debug/pprof - do not expose publicly")
	}
}

// registerAdminEndpoint optionally registers the admin signal endpoint.
// Requires CODELENS_ADMIN_TOKEN; absent token leaves the route unmounted.
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(config.EnvPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + config.EnvPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10, // requests per minute
		RateBurst: 5,
		Manager:   nil, // default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint mounted",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer"),
			zap.String("limit", "10/min, burst 5"))
		logger.Warn("Admin signal endpoint mounted - do not expose publicly")
	}
}
