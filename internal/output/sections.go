package output

import (
	"fmt"
	"strings"

	"github.com/codelens/codelens/internal/core"
)

type reportSection struct {
	Title string
	Text  string
	Fence string
}

// reportSections breaks a successful report into renderable sections.
// Failed reports carry their message in the notes column instead.
func reportSections(report *core.ExplainReport) []reportSection {
	if report == nil || report.Failed {
		return nil
	}

	sections := make([]reportSection, 0, 3)
	if text := strings.TrimSpace(report.Result.Explanation); text != "" {
		sections = append(sections, reportSection{Title: "Explanation", Text: text})
	}
	if text := strings.TrimSpace(report.Result.Errors); text != "" {
		sections = append(sections, reportSection{Title: "Errors", Text: text})
	}
	if text := strings.TrimSpace(report.Result.ImprovedCode); text != "" {
		sections = append(sections, reportSection{
			Title: "Improved Code",
			Text:  text,
			Fence: fenceTag(report.Language),
		})
	}
	return sections
}

func fenceTag(language core.Language) string {
	switch language {
	case core.LanguagePython:
		return "python"
	case core.LanguageCPP:
		return "cpp"
	default:
		return strings.ToLower(string(language))
	}
}

func renderReportSections(sections []reportSection, markdown bool) string {
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, section := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		if markdown {
			sb.WriteString(fmt.Sprintf("\n\n### %s\n\n", section.Title))
			if section.Fence != "" {
				sb.WriteString(fmt.Sprintf("```%s\n%s\n```\n", section.Fence, section.Text))
			} else {
				sb.WriteString(section.Text + "\n")
			}
		} else {
			sb.WriteString(fmt.Sprintf("\n\n%s:\n", section.Title))
			for _, line := range strings.Split(section.Text, "\n") {
				sb.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return sb.String()
}
