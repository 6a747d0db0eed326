package llm

import "time"

// Config defines upstream provider configuration for the explanation
// pipeline.
//
// Nothing in here references the rest of the app config, so the subtree
// could move to its own module without changes.
type Config struct {
	// Provider selects the wire driver: "completion" (generic text
	// completion endpoint) or "openai" (chat completions).
	Provider string `mapstructure:"provider"`

	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Timeout bounds a single upstream attempt, not the whole retry budget.
	Timeout time.Duration `mapstructure:"timeout"`

	// Retries is the number of additional attempts after the first request.
	Retries int `mapstructure:"retries"`

	// Backoff is the base delay before the first retry; each further retry
	// doubles it. A provider Retry-After hint overrides the computed delay
	// when longer, capped at RetryAfterCap.
	Backoff       time.Duration `mapstructure:"backoff"`
	RetryAfterCap time.Duration `mapstructure:"retry_after_cap"`

	// PromptsDir allows deployments to override the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Debug controls optional diagnostics like raw payload capture.
	Debug DebugConfig `mapstructure:"debug"`
}

type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}
