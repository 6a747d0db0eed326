package llm

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/llm/driver"
	"github.com/codelens/codelens/internal/llm/driver/completion"
	"github.com/codelens/codelens/internal/llm/driver/openai"
	"github.com/codelens/codelens/internal/llm/prompt"
)

// BuildDriver selects the wire driver for the configured provider.
func BuildDriver(cfg Config) (driver.Driver, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "completion"
	}

	switch provider {
	case "completion":
		client := completion.NewClient(cfg.BaseURL, cfg.APIKey)
		client.Timeout = cfg.Timeout
		return client, nil
	case "openai":
		client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
		client.Timeout = cfg.Timeout
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// LoadRegistry builds the prompt registry. PromptsDir overrides embedded
// prompts slug by slug and may add new ones.
func LoadRegistry(cfg Config) (prompt.Registry, error) {
	defaults, err := prompt.LoadDefaults()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.PromptsDir) == "" {
		return prompt.NewRegistry(defaults)
	}

	overrides, err := prompt.LoadFromDir(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	return prompt.NewRegistry(prompt.Merge(defaults, overrides))
}

// NewServiceFromConfig assembles the full explanation service.
func NewServiceFromConfig(cfg Config, version string) (*Service, error) {
	drv, err := BuildDriver(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	return NewService(cfg, drv, registry, version), nil
}
