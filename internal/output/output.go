package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/core"
)

// Format names one of the supported report renderings.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders explain reports.
type Formatter interface {
	FormatReport(report *core.ExplainReport) (string, error)
}

// ParseFormat validates and normalizes a format string. Empty input selects
// the table format.
func ParseFormat(value string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(value))); format {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatMarkdown:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter picks the formatter implementation for a format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatReportList renders multiple reports using the requested format. JSON
// output is a single array so the result stays parseable as one document;
// other formats render each report separated by a blank line.
func FormatReportList(format Format, reports []*core.ExplainReport) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	formatter := NewFormatter(format)
	var sb strings.Builder
	for _, report := range reports {
		if report == nil {
			continue
		}
		value, err := formatter.FormatReport(report)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(value)
	}

	return sb.String(), nil
}
