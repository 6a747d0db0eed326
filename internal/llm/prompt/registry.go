package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry provides access to prompt definitions by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// slugRegistry is the in-process Registry. Prompts are indexed by slug and
// listed in slug order so doctor output stays stable.
type slugRegistry struct {
	bySlug map[string]*Prompt
	slugs  []string
}

// NewRegistry indexes prompts by slug. Slugs must be unique; the explain
// pipeline addresses its template by slug, so a collision would make the
// selection ambiguous.
func NewRegistry(prompts []*Prompt) (Registry, error) {
	reg := &slugRegistry{bySlug: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt missing slug")
		}
		if _, ok := reg.bySlug[slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		reg.bySlug[slug] = p
		reg.slugs = append(reg.slugs, slug)
	}
	sort.Strings(reg.slugs)
	return reg, nil
}

// Merge layers overrides onto base prompts by slug: an override replaces the
// base prompt with the same slug and new slugs are appended. Neither input
// is modified.
func Merge(base, overrides []*Prompt) []*Prompt {
	replaced := make(map[string]bool, len(overrides))
	for _, override := range overrides {
		if override != nil {
			replaced[strings.TrimSpace(override.Config.Slug)] = true
		}
	}

	merged := make([]*Prompt, 0, len(base)+len(overrides))
	for _, p := range base {
		if p == nil || replaced[strings.TrimSpace(p.Config.Slug)] {
			continue
		}
		merged = append(merged, p)
	}
	return append(merged, overrides...)
}

func (r *slugRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return p, nil
}

func (r *slugRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	result := make([]*Prompt, 0, len(r.slugs))
	for _, slug := range r.slugs {
		result = append(result, r.bySlug[slug])
	}
	return result
}
