package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		observability.InitCLILogger("codelens-test", false)
		require.NotNil(t, observability.CLILogger)
		observability.CLILogger.Info("cli logger ready", zap.String("check", "default"))
	})

	t.Run("Verbose", func(t *testing.T) {
		observability.InitCLILogger("codelens-test", true)
		require.NotNil(t, observability.CLILogger)
		observability.CLILogger.Debug("debug enabled", zap.Bool("verbose", true))
	})
}

func TestInitServerLogger(t *testing.T) {
	t.Run("Structured", func(t *testing.T) {
		observability.InitServerLogger("codelens-test", "info", "test", "codelens")
		require.NotNil(t, observability.ServerLogger)
		observability.ServerLogger.Info("server logger ready",
			zap.String("component", "observability"),
			zap.Int("port", 8080))
	})

	t.Run("EmptyEnvironmentAndNamespace", func(t *testing.T) {
		observability.InitServerLogger("codelens-test", "info", "", "")
		require.NotNil(t, observability.ServerLogger)
	})

	t.Run("UnknownLevelFallsBackToInfo", func(t *testing.T) {
		observability.InitServerLogger("codelens-test", "chatty", "test", "codelens")
		require.NotNil(t, observability.ServerLogger)
		observability.ServerLogger.Info("still logging after level fallback")
	})
}

func TestFlushLoggers(t *testing.T) {
	observability.InitCLILogger("codelens-flush", false)
	observability.InitServerLogger("codelens-flush", "info", "test", "codelens")
	observability.FlushLoggers()
}

// InitServerLogger builds this same profile; keep the literal config in sync.
func TestCorrelationMiddlewareProfile(t *testing.T) {
	logger, err := logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: "INFO",
		Service:      "codelens-correlation",
		Environment:  "test",
		Middleware: []logging.MiddlewareConfig{{
			Name:    "correlation",
			Enabled: true,
			Order:   100,
			Config:  make(map[string]any),
		}},
		Sinks: []logging.SinkConfig{{
			Type:   "console",
			Format: "json",
			Console: &logging.ConsoleSinkConfig{
				Stream:   "stderr",
				Colorize: false,
			},
		}},
	})
	require.NoError(t, err)
	logger.Info("correlation attached", zap.String("request_id", "abc-123"))
}

func TestCrucibleVersionMetadata(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
	require.NotEmpty(t, crucible.GetVersionString())
}
