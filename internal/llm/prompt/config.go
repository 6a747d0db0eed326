package prompt

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug        string `yaml:"slug" json:"slug"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`

	// SystemTemplate is the rendered prompt body. When absent from the
	// frontmatter, the markdown body below it is used.
	SystemTemplate string `yaml:"system_template,omitempty" json:"system_template,omitempty"`

	// UserTemplate, when set, is appended to the rendered system template.
	UserTemplate string `yaml:"user_template,omitempty" json:"user_template,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}
