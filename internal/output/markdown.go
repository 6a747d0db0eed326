package output

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/core"
)

// MarkdownFormatter renders reports as Markdown documents.
type MarkdownFormatter struct{}

// FormatReport renders a report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *core.ExplainReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s (%s)\n", escapePipes(displaySource(report)), report.Language.DisplayName()))

	status := statusLabel(report)
	if notes := formatNotes(report); notes != "" {
		status += fmt.Sprintf(" (%s)", notes)
	}
	sb.WriteString(fmt.Sprintf("\n**Status**: %s\n", status))

	sb.WriteString(renderReportSections(reportSections(report), true))
	return sb.String(), nil
}

// escapePipes keeps literal pipe characters from breaking Markdown tables.
func escapePipes(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
