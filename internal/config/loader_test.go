package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		resetViper(t)
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		wantStorePath := filepath.Join(gfconfig.GetAppDataDir(AppName), AppName+".db")
		assert.Equal(t, wantStorePath, cfg.Store.Path)
		assert.Empty(t, cfg.Store.URL)
		assert.Empty(t, cfg.Store.AuthToken)

		assert.Equal(t, 30, cfg.Limiter.MaxRequests)
		assert.Equal(t, time.Hour, cfg.Limiter.Window)
		assert.Equal(t, 5*time.Minute, cfg.Limiter.SweepInterval)
		assert.False(t, cfg.Limiter.Persist)

		assert.Equal(t, 20000, cfg.Validation.MaxBytes)
		assert.Equal(t, 500, cfg.Validation.MaxLines)
		assert.Equal(t, 10000, cfg.Validation.MaxLineLength)

		assert.Equal(t, "completion", cfg.LLM.Provider)
		assert.Equal(t, 0.2, cfg.LLM.Temperature)
		assert.Equal(t, 1024, cfg.LLM.MaxTokens)
		assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
		assert.Equal(t, 3, cfg.LLM.Retries)
		assert.Equal(t, time.Second, cfg.LLM.Backoff)
		assert.Equal(t, 2*time.Minute, cfg.LLM.RetryAfterCap)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.Equal(t, "production", cfg.Environment)

		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		resetViper(t)

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9100,
				"host": "127.0.0.1",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Untouched keys keep their defaults.
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
		assert.Equal(t, 9090, cfg.Metrics.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		resetViper(t)

		t.Setenv("CODELENS_PORT", "3100")
		t.Setenv("CODELENS_LOG_LEVEL", "warn")
		t.Setenv("CODELENS_METRICS_ENABLED", "false")
		t.Setenv("CODELENS_LLM_TEMPERATURE", "0.7")
		t.Setenv("CODELENS_LIMITER_MAX_REQUESTS", "5")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 3100, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 0.7, cfg.LLM.Temperature)
		assert.Equal(t, 5, cfg.Limiter.MaxRequests)
	})

	// Runtime overrides sit above env vars, which sit above defaults.
	t.Run("ConfigPrecedence", func(t *testing.T) {
		resetViper(t)

		t.Setenv("CODELENS_PORT", "4100")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5100,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 5100, cfg.Server.Port)
	})

	t.Run("RejectsNegativeRetries", func(t *testing.T) {
		resetViper(t)

		overrides := map[string]any{
			"llm": map[string]any{
				"retries": -1,
			},
		}

		_, err := Load(ctx, overrides)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.retries")
	})

	t.Run("RejectsOutOfRangeTemperature", func(t *testing.T) {
		resetViper(t)

		overrides := map[string]any{
			"llm": map[string]any{
				"temperature": 3.5,
			},
		}

		_, err := Load(ctx, overrides)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.temperature")
	})
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()
	resetViper(t)

	cfg, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Run("GetConfigReturnsLoadedConfig", func(t *testing.T) {
		retrieved := GetConfig()
		assert.NotNil(t, retrieved)
		assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
		assert.Equal(t, cfg.Logging.Level, retrieved.Logging.Level)
	})
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	assert.NotEmpty(t, specs)

	envVarNames := make(map[string]bool)
	for _, spec := range specs {
		envVarNames[spec.Name] = true
	}

	assert.True(t, envVarNames["CODELENS_LOG_LEVEL"], "LOG_LEVEL env var must be mapped")
	assert.True(t, envVarNames["CODELENS_PORT"], "PORT env var must be mapped")
	assert.True(t, envVarNames["CODELENS_HOST"], "HOST env var must be mapped")
	assert.True(t, envVarNames["CODELENS_METRICS_PORT"], "METRICS_PORT env var must be mapped")
	assert.True(t, envVarNames["CODELENS_DB_PATH"], "DB_PATH env var must be mapped")
	assert.True(t, envVarNames["CODELENS_LLM_API_KEY"], "LLM_API_KEY env var must be mapped")
	assert.True(t, envVarNames["CODELENS_LIMITER_WINDOW"], "LIMITER_WINDOW env var must be mapped")
}

func TestDurationParsing(t *testing.T) {
	ctx := context.Background()

	t.Run("DurationFromEnv", func(t *testing.T) {
		resetViper(t)

		t.Setenv("CODELENS_READ_TIMEOUT", "75s")
		t.Setenv("CODELENS_SHUTDOWN_TIMEOUT", "2m30s")
		t.Setenv("CODELENS_LLM_TIMEOUT", "90s")
		t.Setenv("CODELENS_LIMITER_WINDOW", "30m")

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, 75*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 150*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
		assert.Equal(t, 30*time.Minute, cfg.Limiter.Window)
	})
}

func TestConfigReload(t *testing.T) {
	ctx := context.Background()
	resetViper(t)

	cfg1, err := Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg1)
	initialPort := cfg1.Server.Port

	overrides := map[string]any{
		"server": map[string]any{
			"port": initialPort + 1000,
		},
	}

	cfg2, err := Load(ctx, overrides)
	require.NoError(t, err)
	require.NotNil(t, cfg2)

	// A reload swaps the config GetConfig hands out.
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)
	current := GetConfig()
	assert.Equal(t, cfg2.Server.Port, current.Server.Port)
}

func TestMergeSettings(t *testing.T) {
	base := map[string]any{
		"server": map[string]any{
			"host": "localhost",
			"port": 8080,
		},
		"environment": "production",
	}

	mergeSettings(base, map[string]any{
		"server": map[string]any{
			"port": 9090,
		},
		"debug": map[string]any{
			"enabled": true,
		},
	})

	server := base["server"].(map[string]any)
	assert.Equal(t, "localhost", server["host"])
	assert.Equal(t, 9090, server["port"])
	assert.Equal(t, "production", base["environment"])
	assert.Equal(t, true, base["debug"].(map[string]any)["enabled"])
}
