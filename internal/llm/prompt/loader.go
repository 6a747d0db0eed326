package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// Load parses a prompt definition: YAML frontmatter between "---" lines with
// an optional markdown body, or a bare YAML document. The body becomes the
// system template when the frontmatter does not set one.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}

	switch {
	case strings.TrimSpace(cfg.Slug) == "":
		return nil, fmt.Errorf("prompt %s missing slug", source)
	case cfg.SystemTemplate == "":
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir reads every .md prompt in dir. Other files are ignored. The
// directory must exist; it is only consulted when explicitly configured, so
// a missing path is a config mistake worth surfacing.
func LoadFromDir(dir string) ([]*Prompt, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}

	var prompts []*Prompt
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path) // #nosec G304 -- prompt dir comes from config
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		p, err := Load(path, data)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func parseDocument(data []byte) (Config, string, error) {
	doc := strings.TrimSpace(string(data))
	if doc == "" {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	front, body, hasFront := splitDocument(doc)

	var cfg Config
	if !hasFront {
		if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, doc, nil
	}

	if err := yaml.Unmarshal([]byte(front), &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, body, nil
}

// splitDocument separates frontmatter from body. The frontmatter sits between
// the opening "---" line and the next one; an unterminated header swallows the
// whole document, which the caller rejects for lack of a template.
func splitDocument(doc string) (front, body string, hasFront bool) {
	lines := strings.Split(doc, "\n")
	if strings.TrimSpace(lines[0]) != frontmatterDelim {
		return "", doc, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelim {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return strings.Join(lines[1:], "\n"), "", true
}
