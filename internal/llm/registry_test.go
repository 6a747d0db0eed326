package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDriverSelectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{name: "DefaultsToCompletion", provider: "", want: "completion"},
		{name: "Completion", provider: "completion", want: "completion"},
		{name: "OpenAI", provider: "openai", want: "openai"},
		{name: "CaseInsensitive", provider: "OpenAI", want: "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv, err := BuildDriver(Config{Provider: tt.provider, BaseURL: "https://example.test", APIKey: "test-key"})
			require.NoError(t, err)
			require.Equal(t, tt.want, drv.Name())
		})
	}
}

func TestBuildDriverRejectsUnknownProvider(t *testing.T) {
	_, err := BuildDriver(Config{Provider: "telegraph"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported llm provider")
}

func TestLoadRegistryUsesDefaults(t *testing.T) {
	registry, err := LoadRegistry(Config{})
	require.NoError(t, err)

	def, err := registry.Get("explain-code")
	require.NoError(t, err)
	require.NotEmpty(t, def.Config.SystemTemplate)
}

func TestLoadRegistryOverridesBySlug(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: explain-code\n---\nCustom template for {{code}}."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "explain-code.md"), []byte(override), 0o600))
	extra := "---\nslug: extra-prompt\n---\nExtra body."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.md"), []byte(extra), 0o600))

	registry, err := LoadRegistry(Config{PromptsDir: dir})
	require.NoError(t, err)

	def, err := registry.Get("explain-code")
	require.NoError(t, err)
	require.Equal(t, "Custom template for {{code}}.", def.Config.SystemTemplate)

	added, err := registry.Get("extra-prompt")
	require.NoError(t, err)
	require.Equal(t, "Extra body.", added.Config.SystemTemplate)
}
