package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed prompts/*.md
var builtinFS embed.FS

// LoadDefaults parses the prompt set compiled into the binary.
func LoadDefaults() ([]*Prompt, error) {
	names, err := fs.Glob(builtinFS, "prompts/*.md")
	if err != nil {
		return nil, fmt.Errorf("scan embedded prompts: %w", err)
	}

	prompts := make([]*Prompt, 0, len(names))
	for _, name := range names {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", name, err)
		}
		p, err := Load(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// DefaultRegistry builds a registry containing only the embedded prompts.
func DefaultRegistry() (Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(prompts)
}
