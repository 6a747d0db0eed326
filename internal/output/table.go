package output

import (
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/codelens/codelens/internal/core"
)

// TableFormatter renders reports as an ASCII table with the explanation
// sections printed underneath.
type TableFormatter struct{}

// FormatReport renders a report as a table.
func (f *TableFormatter) FormatReport(report *core.ExplainReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Source", "Language", "Status", "Notes"})
	t.AppendRow(table.Row{
		displaySource(report),
		report.Language.DisplayName(),
		statusLabel(report),
		formatNotes(report),
	})

	rendered := t.Render()
	rendered += renderReportSections(reportSections(report), false)
	return rendered, nil
}
