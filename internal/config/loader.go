// Package config provides centralized configuration management for CodeLens.
// Settings merge in three layers: baked-in defaults registered with viper,
// the user config file discovered under XDG paths, and CODELENS_* environment
// variables applied last.
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the canonical application name used for config and data paths.
	AppName = "codelens"

	// EnvPrefix is the prefix for all environment overrides.
	EnvPrefix = "CODELENS_"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers baked-in defaults with viper. Called once from CLI
// initialization and from tests that exercise Load directly.
func SetDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Store defaults
	viper.SetDefault("store.driver", "libsql")

	// Limiter defaults: 30 requests per client per trailing hour
	viper.SetDefault("limiter.max_requests", 30)
	viper.SetDefault("limiter.window", "1h")
	viper.SetDefault("limiter.sweep_interval", "5m")
	viper.SetDefault("limiter.persist", false)

	// Validation defaults
	viper.SetDefault("validation.max_bytes", 20000)
	viper.SetDefault("validation.max_lines", 500)
	viper.SetDefault("validation.max_line_length", 10000)

	// LLM provider defaults
	viper.SetDefault("llm.provider", "completion")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.retries", 3)
	viper.SetDefault("llm.backoff", "1s")
	viper.SetDefault("llm.retry_after_cap", "2m")
	viper.SetDefault("llm.debug.capture_raw_enabled", false)
	viper.SetDefault("llm.debug.capture_raw_max_bytes", 4096)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.profile", "STRUCTURED")
	viper.SetDefault("environment", "production")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// Health defaults
	viper.SetDefault("health.enabled", true)

	// Debug defaults
	viper.SetDefault("debug.enabled", false)
	viper.SetDefault("debug.pprof_enabled", false)
}

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: CODELENS_{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load assembles the configuration from the initialized viper instance plus
// environment overrides, decodes it into the typed Config, and stores it for
// later GetConfig calls. Safe to call repeatedly (config reload on SIGHUP).
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	settings := viper.AllSettings()

	// Environment variables override file settings. viper's AutomaticEnv does
	// not surface env values through AllSettings, so they are applied here
	// from an explicit spec list.
	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	mergeSettings(settings, envOverrides)

	for _, overrides := range runtimeOverrides {
		mergeSettings(settings, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

// Normalize applies floors to tunables that must stay positive and rejects
// values no deployment can mean.
func (c *Config) Normalize() error {
	if c.Limiter.MaxRequests < 0 {
		return fmt.Errorf("limiter.max_requests must not be negative (got %d)", c.Limiter.MaxRequests)
	}
	if c.Limiter.Window < 0 {
		return fmt.Errorf("limiter.window must not be negative (got %s)", c.Limiter.Window)
	}
	if c.Validation.MaxBytes < 0 || c.Validation.MaxLines < 0 || c.Validation.MaxLineLength < 0 {
		return fmt.Errorf("validation limits must not be negative")
	}
	if c.LLM.Retries < 0 {
		return fmt.Errorf("llm.retries must not be negative (got %d)", c.LLM.Retries)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2 (got %g)", c.LLM.Temperature)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// mergeSettings deep-merges overrides into base, overwriting scalars and
// recursing into nested maps.
func mergeSettings(base map[string]any, overrides map[string]any) {
	for key, value := range overrides {
		overrideMap, overrideIsMap := value.(map[string]any)
		if !overrideIsMap {
			base[key] = value
			continue
		}
		baseMap, baseIsMap := base[key].(map[string]any)
		if !baseIsMap {
			base[key] = overrideMap
			continue
		}
		mergeSettings(baseMap, overrideMap)
	}
}

// getEnvSpecs maps CODELENS_{NAME} environment variables to config paths.
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},
		{Name: prefix + "ENVIRONMENT", Path: []string{"environment"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Limiter config
		{Name: prefix + "LIMITER_MAX_REQUESTS", Path: []string{"limiter", "max_requests"}, Type: EnvInt},
		{Name: prefix + "LIMITER_WINDOW", Path: []string{"limiter", "window"}, Type: EnvString},
		{Name: prefix + "LIMITER_SWEEP_INTERVAL", Path: []string{"limiter", "sweep_interval"}, Type: EnvString},
		{Name: prefix + "LIMITER_PERSIST", Path: []string{"limiter", "persist"}, Type: EnvBool},

		// Validation config
		{Name: prefix + "VALIDATION_MAX_BYTES", Path: []string{"validation", "max_bytes"}, Type: EnvInt},
		{Name: prefix + "VALIDATION_MAX_LINES", Path: []string{"validation", "max_lines"}, Type: EnvInt},
		{Name: prefix + "VALIDATION_MAX_LINE_LENGTH", Path: []string{"validation", "max_line_length"}, Type: EnvInt},

		// LLM provider config
		{Name: prefix + "LLM_PROVIDER", Path: []string{"llm", "provider"}, Type: EnvString},
		{Name: prefix + "LLM_BASE_URL", Path: []string{"llm", "base_url"}, Type: EnvString},
		{Name: prefix + "LLM_API_KEY", Path: []string{"llm", "api_key"}, Type: EnvString},
		{Name: prefix + "LLM_MODEL", Path: []string{"llm", "model"}, Type: EnvString},
		{Name: prefix + "LLM_TEMPERATURE", Path: []string{"llm", "temperature"}, Type: EnvString},
		{Name: prefix + "LLM_MAX_TOKENS", Path: []string{"llm", "max_tokens"}, Type: EnvInt},
		{Name: prefix + "LLM_TIMEOUT", Path: []string{"llm", "timeout"}, Type: EnvString},
		{Name: prefix + "LLM_RETRIES", Path: []string{"llm", "retries"}, Type: EnvInt},
		{Name: prefix + "LLM_BACKOFF", Path: []string{"llm", "backoff"}, Type: EnvString},
		{Name: prefix + "LLM_RETRY_AFTER_CAP", Path: []string{"llm", "retry_after_cap"}, Type: EnvString},
		{Name: prefix + "LLM_PROMPTS_DIR", Path: []string{"llm", "prompts_dir"}, Type: EnvString},
		{Name: prefix + "LLM_DEBUG_CAPTURE_RAW_ENABLED", Path: []string{"llm", "debug", "capture_raw_enabled"}, Type: EnvBool},
		{Name: prefix + "LLM_DEBUG_CAPTURE_RAW_MAX_BYTES", Path: []string{"llm", "debug", "capture_raw_max_bytes"}, Type: EnvInt},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		// Debug config
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	return gfconfig.GetAppCacheDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

// UserConfigPaths returns the candidate config file locations in precedence order.
func UserConfigPaths() []string {
	return gfconfig.GetAppConfigPaths(AppName)
}
