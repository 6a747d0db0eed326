package llm

import (
	"strings"

	"github.com/codelens/codelens/internal/core"
	"github.com/codelens/codelens/internal/metrics"
)

// Placeholders substituted for sections the upstream response did not carry.
const (
	PlaceholderExplanation  = "No explanation available."
	PlaceholderErrors       = "No errors found."
	PlaceholderImprovedCode = "No improved code available."
)

type section int

const (
	sectionNone section = iota
	sectionExplanation
	sectionErrors
	sectionImprovedCode
)

// ParseReply converts an upstream reply into the three-field result. It is
// total: a failed reply yields the failure message in every field, a
// successful reply always yields exactly three fields with placeholders
// where markers were missing.
func ParseReply(reply *Reply) core.ExplanationResult {
	if reply == nil {
		message := "upstream reply is missing"
		return core.ExplanationResult{Explanation: message, Errors: message, ImprovedCode: message}
	}

	if reply.Status != StatusSuccess {
		message := "upstream request failed"
		if reply.Failure != nil && strings.TrimSpace(reply.Failure.Message) != "" {
			message = reply.Failure.Message
		}
		return core.ExplanationResult{Explanation: message, Errors: message, ImprovedCode: message}
	}

	return segment(reply.Text)
}

// segment walks the reply line by line, switching the active section when a
// marker heading is recognized. The first occurrence of each marker wins; a
// repeated marker line is kept as content of the section it appears in.
// Text before the first marker is dropped, unless no marker exists at all,
// in which case the whole text becomes the explanation.
func segment(text string) core.ExplanationResult {
	var (
		collected = map[section][]string{}
		claimed   = map[section]bool{}
		current   = sectionNone
		sawMarker bool
	)

	for _, line := range strings.Split(text, "\n") {
		if target, ok := markerFor(line); ok && !claimed[target] {
			claimed[target] = true
			current = target
			sawMarker = true
			continue
		}
		collected[current] = append(collected[current], line)
	}

	explanation := joinSection(collected[sectionExplanation])
	errorsText := joinSection(collected[sectionErrors])
	improved := joinSection(collected[sectionImprovedCode])

	if !sawMarker {
		explanation = strings.TrimSpace(text)
	}

	if explanation == "" {
		metrics.RecordParseFallback("explanation")
		explanation = PlaceholderExplanation
	}
	if errorsText == "" {
		metrics.RecordParseFallback("errors")
		errorsText = PlaceholderErrors
	}
	if improved == "" {
		metrics.RecordParseFallback("improved_code")
		improved = PlaceholderImprovedCode
	}

	return core.ExplanationResult{
		Explanation:  explanation,
		Errors:       errorsText,
		ImprovedCode: improved,
	}
}

// markerFor recognizes a section heading. Headings match case-insensitively
// and tolerate surrounding hash runs, emphasis characters, and trailing
// punctuation, so "### Errors", "**errors**", and "EXPLANATION:" all count.
func markerFor(line string) (section, bool) {
	candidate := strings.Trim(line, "#*:-_ \t")
	normalized := strings.ToLower(strings.Join(strings.Fields(candidate), " "))

	switch normalized {
	case "explanation":
		return sectionExplanation, true
	case "errors", "error":
		return sectionErrors, true
	case "improved code":
		return sectionImprovedCode, true
	}
	return sectionNone, false
}

func joinSection(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
