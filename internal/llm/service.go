package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/llm/driver"
	"github.com/codelens/codelens/internal/llm/prompt"
)

const defaultPromptSlug = "explain-code"

// Service coordinates prompt rendering, the retrying client, and response
// parsing. One Service is shared across requests; it holds no per-request
// state.
type Service struct {
	Client   *Client
	Registry prompt.Registry
	Config   Config
	Version  string

	// Clock feeds provenance timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// Outcome is the full result of one explanation exchange.
type Outcome struct {
	Result     core.ExplanationResult
	Reply      *Reply
	Provenance core.Provenance
}

// NewService wires a service from config.
func NewService(cfg Config, drv driver.Driver, registry prompt.Registry, version string) *Service {
	return &Service{
		Client:   NewClient(cfg, drv),
		Registry: registry,
		Config:   cfg,
		Version:  version,
	}
}

// Explain runs the full pipeline for a validated submission. Errors are
// reserved for misconfiguration; upstream failures come back inside the
// outcome with a fatal reply and the failure message mirrored into every
// result field.
func (s *Service) Explain(ctx context.Context, sub *core.Submission) (*Outcome, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("llm service not configured")
	}
	if s.Registry == nil {
		return nil, errors.New("prompt registry not configured")
	}
	if sub == nil {
		return nil, errors.New("submission is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	promptDef, err := s.Registry.Get(defaultPromptSlug)
	if err != nil {
		return nil, err
	}

	text, err := renderPrompt(promptDef, sub)
	if err != nil {
		return nil, err
	}

	req := &driver.Request{
		Model:  s.Config.Model,
		Prompt: text,
	}
	if s.Config.Temperature > 0 {
		temperature := s.Config.Temperature
		req.Temperature = &temperature
	}
	if s.Config.MaxTokens > 0 {
		maxTokens := s.Config.MaxTokens
		req.MaxTokens = &maxTokens
	}

	requestedAt := s.now()
	reply := s.Client.Send(ctx, req)
	resolvedAt := s.now()

	reply.Raw = capRawBody(s.Config, reply.Raw)

	return &Outcome{
		Result: ParseReply(reply),
		Reply:  reply,
		Provenance: core.Provenance{
			RequestedAt: requestedAt.UTC(),
			ResolvedAt:  resolvedAt.UTC(),
			Provider:    s.providerName(),
			Model:       s.Config.Model,
			Attempts:    reply.Attempts,
			ToolVersion: s.Version,
		},
	}, nil
}

// BuildPrompt renders the prompt for a submission without sending it.
// Useful for doctor output and prompt inspection.
func (s *Service) BuildPrompt(sub *core.Submission) (string, error) {
	if s == nil || s.Registry == nil {
		return "", errors.New("prompt registry not configured")
	}
	if sub == nil {
		return "", errors.New("submission is required")
	}

	promptDef, err := s.Registry.Get(defaultPromptSlug)
	if err != nil {
		return "", err
	}
	return renderPrompt(promptDef, sub)
}

func (s *Service) providerName() string {
	if s.Client != nil && s.Client.Driver != nil {
		return s.Client.Driver.Name()
	}
	return strings.TrimSpace(s.Config.Provider)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// renderPrompt substitutes submission variables into the prompt templates.
// The output is fully determined by the template and the submission, so the
// same submission always renders byte-identical text. Replacement is a single
// pass: a placeholder literal inside the submitted code stays verbatim.
func renderPrompt(def *prompt.Prompt, sub *core.Submission) (string, error) {
	if def == nil {
		return "", errors.New("prompt is required")
	}

	replacer := strings.NewReplacer(
		"{{language}}", string(sub.Language),
		"{{language_display}}", sub.Language.DisplayName(),
		"{{code}}", sub.Code,
	)

	system := replacer.Replace(def.Config.SystemTemplate)
	if strings.TrimSpace(system) == "" {
		return "", fmt.Errorf("prompt %s has no system template", def.Config.Slug)
	}

	user := replacer.Replace(def.Config.UserTemplate)
	if strings.TrimSpace(user) == "" {
		return system, nil
	}
	return system + "\n\n" + user, nil
}
