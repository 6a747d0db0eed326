package config

import (
	"time"

	"github.com/codelens/codelens/internal/llm"
)

// Config represents the complete application configuration assembled from
// config file, environment variables, and runtime overrides.
type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Store       StoreConfig      `mapstructure:"store"`
	Limiter     LimiterConfig    `mapstructure:"limiter"`
	Validation  ValidationConfig `mapstructure:"validation"`
	LLM         llm.Config       `mapstructure:"llm"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
	Health      HealthConfig     `mapstructure:"health"`
	Debug       DebugConfig      `mapstructure:"debug"`
	Environment string           `mapstructure:"environment"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the report database. Driver is "libsql"; Path points
// at a local file and URL at a remote Turso instance, with URL winning when
// both are set.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LimiterConfig controls per-client admission.
//
// MaxRequests requests are admitted per client within the trailing Window;
// further requests are denied until the oldest admission ages out. Persist
// moves window state into the store so it survives restarts.
type LimiterConfig struct {
	MaxRequests   int           `mapstructure:"max_requests"`
	Window        time.Duration `mapstructure:"window"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Persist       bool          `mapstructure:"persist"`
}

// ValidationConfig bounds accepted submissions.
type ValidationConfig struct {
	MaxBytes      int `mapstructure:"max_bytes"`
	MaxLines      int `mapstructure:"max_lines"`
	MaxLineLength int `mapstructure:"max_line_length"`
}

// LoggingConfig picks the log level and profile. CLI commands run the SIMPLE
// console profile; the server runs STRUCTURED with correlation IDs.
type LoggingConfig struct {
	// Level is the minimum level emitted: trace, debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Profile is SIMPLE or STRUCTURED.
	Profile string `mapstructure:"profile"`
}

// MetricsConfig controls the Prometheus exporter. The exporter listens on
// its own Port; the main server additionally proxies it under /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HealthConfig toggles the health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig gates development-only surfaces. PprofEnabled exposes the
// pprof handlers and must stay off anywhere untrusted clients can reach.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
