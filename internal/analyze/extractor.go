package analyze

import (
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// Extractor turns free model output into a structured analysis.
// Implementations must never fail; missing fields take the defaults of
// model.DefaultAnalysis.
type Extractor interface {
	Extract(text string) model.PolicyAnalysis
}

// LabelExtractor reads "Label: value" lines. For each of Category, Title,
// Status and Summary the first line containing the label is used and the
// value is the text after its first ':'.
type LabelExtractor struct{}

// Extract implements Extractor
func (LabelExtractor) Extract(text string) model.PolicyAnalysis {
	out := model.DefaultAnalysis()
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if v := labelValue(lines, "Category"); v != "" {
		out.Category = v
	}
	if v := labelValue(lines, "Title"); v != "" {
		out.Title = v
	}
	if v := labelValue(lines, "Status"); v != "" {
		out.Status = model.NormalizeStatus(statusWord(v))
	}
	out.Summary = labelValue(lines, "Summary")

	return out
}

func labelValue(lines []string, label string) string {
	for _, line := range lines {
		if !strings.Contains(line, label) {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			return ""
		}
		return cleanValue(value)
	}
	return ""
}

// cleanValue trims whitespace and markdown markers such as "**" and "- "
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "*#-_ \t")
	s = strings.TrimRight(s, "*_ \t")
	return strings.TrimSpace(s)
}

// statusWord keeps the first word so that "Active (since 2024)" still
// normalizes to active
func statusWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:()[]\"'")
}
