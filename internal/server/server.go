package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core/engine"
	apperrors "github.com/codelens/codelens/internal/errors"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/server/handlers"
	servermw "github.com/codelens/codelens/internal/server/middleware"
)

// Server is the HTTP front end: routing, middleware, and lifecycle.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	cfg     config.ServerConfig
	debug   config.DebugConfig
	explain *handlers.ExplainHandler
	limiter *engine.RateLimiter
}

// New assembles the router. The explain handler and limiter are built by the
// caller so the server stays free of store and upstream wiring.
func New(cfg *config.Config, explain *handlers.ExplainHandler, limiter *engine.RateLimiter) *Server {
	r := chi.NewRouter()

	// RealIP first so the limiter keys on the forwarded client address.
	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:  r,
		cfg:     cfg.Server,
		debug:   cfg.Debug,
		explain: explain,
		limiter: limiter,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// HandleError is the central responder for all HTTP errors.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  durationOr(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(s.cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(s.cfg.IdleTimeout, 120*time.Second),
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests and instrumentation.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured server port.
func (s *Server) Port() int {
	return s.cfg.Port
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
