package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/core/engine"
	"github.com/codelens/codelens/internal/core/store"
	errwrap "github.com/codelens/codelens/internal/errors"
	"github.com/codelens/codelens/internal/llm"
	"github.com/codelens/codelens/internal/observability"
	"github.com/codelens/codelens/internal/server"
	"github.com/codelens/codelens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker reports whether the metrics stack came up.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// upstreamConfigChecker validates that the LLM provider is reachable on paper.
// It never calls the provider; readiness must not spend upstream quota.
type upstreamConfigChecker struct {
	cfg llm.Config
}

func (u upstreamConfigChecker) CheckHealth(ctx context.Context) error {
	if u.cfg.BaseURL == "" {
		return errwrap.NewConfigInvalidError("llm base_url is not configured")
	}
	if u.cfg.APIKey == "" {
		return errwrap.NewConfigInvalidError("llm api_key is not configured")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (limiter and server wiring need a restart)

The server will cleanly shut down the HTTP server, stop the limiter sweeper,
and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(ctx)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
		}

		// The service name doubles as the telemetry namespace.
		observability.InitServerLogger(config.AppName, cfg.Logging.Level, cfg.Environment, config.AppName)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, metricsPort, config.AppName); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		} else {
			observability.ServerLogger.Info("Metrics disabled by configuration")
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", metricsPort),
			zap.String("llm_provider", cfg.LLM.Provider))

		// Build the explanation pipeline
		drv, err := llm.BuildDriver(cfg.LLM)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "llm driver construction failed")
		}
		registry, err := llm.LoadRegistry(cfg.LLM)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "prompt registry load failed")
		}
		service := llm.NewService(cfg.LLM, drv, registry, versionInfo.Version)

		validator := &engine.Validator{
			MaxBytes:      cfg.Validation.MaxBytes,
			MaxLines:      cfg.Validation.MaxLines,
			MaxLineLength: cfg.Validation.MaxLineLength,
		}

		// Window state lives in memory unless persistence is requested
		var (
			windowStore engine.WindowStore = engine.NewMemoryWindowStore()
			db          *store.Store
		)
		if cfg.Limiter.Persist {
			db, err = store.Open(ctx, cfg.Store)
			if err != nil {
				return errwrap.WrapInternal(ctx, err, "store open failed")
			}
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return errwrap.WrapInternal(ctx, err, "store migration failed")
			}
			windowStore = db
			observability.ServerLogger.Info("Rate limiter windows persisted",
				zap.String("driver", db.Driver()))
		}

		limiter := &engine.RateLimiter{
			Store:  windowStore,
			Limit:  cfg.Limiter.MaxRequests,
			Window: cfg.Limiter.Window,
		}
		sweepInterval := cfg.Limiter.SweepInterval
		if sweepInterval <= 0 {
			sweepInterval = 5 * time.Minute
		}
		limiter.StartSweeper(sweepInterval)

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		hm.RegisterChecker("upstream_config", upstreamConfigChecker{cfg: cfg.LLM})
		if db != nil {
			hm.RegisterChecker("store", db)
		}

		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

		explainHandler := handlers.NewExplainHandler(service, validator)
		srv := server.New(cfg, explainHandler, limiter)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown hooks run LIFO: the HTTP server drains first, then the
		// limiter and store close, and logging flushes last.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			observability.FlushLoggers()
			if err := observability.StopMetrics(); err != nil {
				observability.ServerLogger.Warn("Metrics exporter stop returned error",
					zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			limiter.StopSweeper()
			if db != nil {
				observability.ServerLogger.Info("Closing store...")
				if err := db.Close(); err != nil {
					observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
				}
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			if _, err := config.Load(ctx); err != nil {
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// Limiter window and server wiring are fixed at startup; a restart
			// is required for those to change.
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Both goroutines report only failures; on a clean shutdown the
		// signal manager exits the process after the hooks run.
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
