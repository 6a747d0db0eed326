package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/core"
)

func successReport() *core.ExplainReport {
	return &core.ExplainReport{
		Source:   "delta.py",
		Language: core.LanguagePython,
		Result: core.ExplanationResult{
			Explanation:  "Reads two integers from input.\nPrints their sum.",
			Errors:       "None found.",
			ImprovedCode: "a, b = map(int, input().split())\nprint(a + b)",
		},
		Provenance: core.Provenance{Provider: "completion", Attempts: 1},
	}
}

func failedReport() *core.ExplainReport {
	return &core.ExplainReport{
		Source:   "broken.py",
		Language: core.LanguagePython,
		Failed:   true,
		Message:  "upstream model request timed out",
		Provenance: core.Provenance{
			Provider: "completion",
			Attempts: 3,
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatReportListJSON(t *testing.T) {
	rendered, err := FormatReportList(FormatJSON, []*core.ExplainReport{successReport()})
	require.NoError(t, err)
	require.Contains(t, rendered, "\"source\": \"delta.py\"")
	require.Contains(t, rendered, "\"language\": \"python\"")
	require.Contains(t, rendered, "\"improved_code\"")
}

func TestFormatters(t *testing.T) {
	report := successReport()

	tableRendered, err := NewFormatter(FormatTable).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "SOURCE")
	require.Contains(t, tableRendered, "delta.py")
	require.Contains(t, tableRendered, "explained")
	require.Contains(t, tableRendered, "Explanation:")
	require.Contains(t, tableRendered, "  Reads two integers from input.")
	require.Contains(t, tableRendered, "Improved Code:")

	jsonRendered, err := NewFormatter(FormatJSON).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"source\": \"delta.py\"")

	markdownRendered, err := NewFormatter(FormatMarkdown).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "## delta.py (Python)")
	require.Contains(t, markdownRendered, "### Explanation")
	require.Contains(t, markdownRendered, "### Improved Code")
	require.Contains(t, markdownRendered, "```python")
}

func TestFailedReportSkipsSections(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatReport(failedReport())
	require.NoError(t, err)
	require.Contains(t, rendered, "failed")
	require.Contains(t, rendered, "upstream model request timed out")
	require.Contains(t, rendered, "attempts: 3")
	require.NotContains(t, rendered, "Explanation:")
}

func TestDisplaySource(t *testing.T) {
	require.Equal(t, "stdin", displaySource(&core.ExplainReport{Source: "-"}))
	require.Equal(t, "snippet", displaySource(&core.ExplainReport{}))
	require.Equal(t, "foo.py", displaySource(&core.ExplainReport{Source: "foo.py"}))
}

func TestStatusLabel(t *testing.T) {
	require.Equal(t, "unknown", statusLabel(nil))
	require.Equal(t, "failed", statusLabel(&core.ExplainReport{Failed: true}))
	require.Equal(t, "explained", statusLabel(&core.ExplainReport{}))
}

func TestFormatNotes(t *testing.T) {
	notes := formatNotes(failedReport())
	require.Equal(t, "upstream model request timed out; provider: completion; attempts: 3", notes)

	require.Equal(t, "provider: completion", formatNotes(successReport()))
}

func TestMarkdownEscapesSource(t *testing.T) {
	report := successReport()
	report.Source = "pipe|test.py"

	rendered, err := NewFormatter(FormatMarkdown).FormatReport(report)
	require.NoError(t, err)
	require.Contains(t, rendered, "pipe\\|test.py")
}

func TestFormatReportListNonJSON(t *testing.T) {
	rendered, err := FormatReportList(FormatMarkdown, []*core.ExplainReport{nil, successReport()})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## "))
	require.Contains(t, rendered, "### Errors")
}

func TestFenceTag(t *testing.T) {
	require.Equal(t, "python", fenceTag(core.LanguagePython))
	require.Equal(t, "cpp", fenceTag(core.LanguageCPP))
}
