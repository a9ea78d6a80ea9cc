package research

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// Renderer writes research and verification results as JSON or Markdown
type Renderer struct {
	IncludeContent bool
}

// NewRenderer creates a renderer. Raw page content is omitted from
// Markdown unless includeContent is set.
func NewRenderer(includeContent bool) *Renderer {
	return &Renderer{IncludeContent: includeContent}
}

// RenderJSON writes v as indented JSON to path; "-" means stdout
func (r *Renderer) RenderJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return writeOutput(path, data)
}

// RenderMarkdown writes a research result as Markdown to path
func (r *Renderer) RenderMarkdown(name string, result *model.ResearchResult, path string) error {
	var b strings.Builder
	r.WriteResearchMarkdown(&b, name, result)
	return writeOutput(path, []byte(b.String()))
}

// WriteResearchMarkdown formats a research result
func (r *Renderer) WriteResearchMarkdown(w io.Writer, name string, result *model.ResearchResult) {
	fmt.Fprintf(w, "# AI Policy Report: %s\n\n", name)

	fmt.Fprintf(w, "## Summary\n\n")
	if result.Summary == "" {
		fmt.Fprintf(w, "_No summary available._\n\n")
	} else {
		fmt.Fprintf(w, "%s\n\n", result.Summary)
	}

	fmt.Fprintf(w, "## Policies (%d)\n\n", len(result.Policies))
	for i, p := range result.Policies {
		fmt.Fprintf(w, "### %d. %s\n\n", i+1, p.Title)
		fmt.Fprintf(w, "- **Category:** %s\n", p.Category)
		fmt.Fprintf(w, "- **Status:** %s\n", p.Status)
		if p.ImplementationDate != nil {
			fmt.Fprintf(w, "- **Implemented:** %s\n", p.ImplementationDate.Format("2006-01-02"))
		}
		if i < len(result.Sources) {
			fmt.Fprintf(w, "- **Source:** %s\n", result.Sources[i].URL)
		}
		fmt.Fprintln(w)
		if p.Summary != "" {
			fmt.Fprintf(w, "%s\n\n", p.Summary)
		}
		if r.IncludeContent && p.Content != "" {
			fmt.Fprintf(w, "<details><summary>Content</summary>\n\n%s\n\n</details>\n\n", p.Content)
		}
	}

	if len(result.Sources) > 0 {
		fmt.Fprintf(w, "## Sources\n\n")
		for _, s := range result.Sources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			fmt.Fprintf(w, "- [%s](%s) (%s, retrieved %s)\n", title, s.URL, s.Type, s.RetrievalDate.Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	}
}

// WriteCrossReferenceMarkdown formats a verification result for one source
func (r *Renderer) WriteCrossReferenceMarkdown(w io.Writer, sourceURL string, result *model.CrossReferenceResult) {
	fmt.Fprintf(w, "# Cross-Reference: %s\n\n", sourceURL)
	fmt.Fprintf(w, "| Metric | Score |\n|---|---|\n")
	fmt.Fprintf(w, "| Reliability | %.2f |\n", result.Reliability)
	fmt.Fprintf(w, "| Relevance | %.2f |\n", result.Relevance)
	fmt.Fprintf(w, "| Confidence | %.2f |\n\n", result.Confidence)

	fmt.Fprintf(w, "## Claims (%d)\n\n", len(result.VerifiedClaims))
	for _, c := range result.VerifiedClaims {
		fmt.Fprintf(w, "- %.0f%% %s\n", c.Confidence*100, c.Text)
		for _, s := range c.SupportingSources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	fmt.Fprintln(w)

	if len(result.SuggestedUpdates) > 0 {
		fmt.Fprintf(w, "## Suggested Updates\n\n")
		for _, s := range result.SuggestedUpdates {
			fmt.Fprintf(w, "- %s\n", s)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "_Method: %s, %d supporting sources, verified %s_\n",
		result.Metadata.Method, result.Metadata.SourceCount,
		result.Metadata.LastVerified.Format("2006-01-02 15:04 MST"))
}

func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
