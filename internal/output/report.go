package output

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/core"
)

func displaySource(report *core.ExplainReport) string {
	if report == nil {
		return ""
	}

	switch source := strings.TrimSpace(report.Source); source {
	case "-":
		return "stdin"
	case "":
		return "snippet"
	default:
		return source
	}
}

func statusLabel(report *core.ExplainReport) string {
	if report == nil {
		return "unknown"
	}
	if report.Failed {
		return "failed"
	}
	return "explained"
}

func formatNotes(report *core.ExplainReport) string {
	if report == nil {
		return ""
	}

	parts := []string{}
	if report.Failed && strings.TrimSpace(report.Message) != "" {
		parts = append(parts, strings.TrimSpace(report.Message))
	}
	if provider := strings.TrimSpace(report.Provenance.Provider); provider != "" {
		parts = append(parts, fmt.Sprintf("provider: %s", provider))
	}
	if report.Provenance.Attempts > 1 {
		parts = append(parts, fmt.Sprintf("attempts: %d", report.Provenance.Attempts))
	}

	return strings.Join(parts, "; ")
}
