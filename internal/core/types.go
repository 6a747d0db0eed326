package core

import (
	"strings"
	"time"
)

// Language identifies a source language accepted for explanation.
type Language string

const (
	LanguagePython Language = "python"
	LanguageCPP    Language = "cpp"
)

// SupportedLanguages lists the languages the explain pipeline accepts.
var SupportedLanguages = []Language{LanguagePython, LanguageCPP}

// ParseLanguage normalizes a user-supplied language identifier.
func ParseLanguage(raw string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "python", "py":
		return LanguagePython, true
	case "cpp", "c++", "cxx":
		return LanguageCPP, true
	default:
		return "", false
	}
}

// DisplayName returns the human-readable name used in prompts and output.
func (l Language) DisplayName() string {
	switch l {
	case LanguagePython:
		return "Python"
	case LanguageCPP:
		return "C++"
	default:
		return string(l)
	}
}

// Submission is a validated explain request ready for prompt construction.
// Submissions are consumed in-flight and never persisted.
type Submission struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
}

// ExplanationResult carries the three sections extracted from a model reply.
// Every field is always populated; sections the model omitted receive
// placeholder text instead of empty strings.
type ExplanationResult struct {
	Explanation  string `json:"explanation"`
	Errors       string `json:"errors"`
	ImprovedCode string `json:"improved_code"`
}

// Provenance captures metadata about how an explanation was produced.
type Provenance struct {
	RequestedAt time.Time `json:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	Attempts    int       `json:"attempts"`
	ToolVersion string    `json:"tool_version"`
}

// ExplainReport pairs an explanation with its source context. The CLI
// formatters render batches of these.
type ExplainReport struct {
	Source     string            `json:"source"`
	Language   Language          `json:"language"`
	Result     ExplanationResult `json:"result"`
	Failed     bool              `json:"failed,omitempty"`
	Message    string            `json:"message,omitempty"`
	Provenance Provenance        `json:"provenance"`
}
