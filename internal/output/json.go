package output

import (
	"encoding/json"

	"github.com/codelens/codelens/internal/core"
)

// JSONFormatter renders reports as indented JSON.
type JSONFormatter struct{}

// FormatReport renders a report as JSON.
func (f *JSONFormatter) FormatReport(report *core.ExplainReport) (string, error) {
	if report == nil {
		return "", nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
