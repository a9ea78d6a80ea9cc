package research

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/policyscout/internal/model"
)

func sampleResult() *model.ResearchResult {
	when := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.ResearchResult{
		Summary: "Uni permits generative AI with disclosure.",
		Policies: []model.PolicyRecord{
			{Category: "teaching", Title: "AI in Coursework", Status: model.StatusActive, Summary: "Disclose AI use.", Content: "full text", LastUpdated: when},
		},
		Sources: []model.SourceRecord{
			{URL: "https://uni.edu/ai", Title: "AI Policy", Type: model.SourceWebpage, RetrievalDate: when},
		},
	}
}

func TestRenderer_ResearchMarkdown(t *testing.T) {
	var b strings.Builder
	NewRenderer(false).WriteResearchMarkdown(&b, "Uni", sampleResult())
	out := b.String()

	for _, want := range []string{
		"# AI Policy Report: Uni",
		"Uni permits generative AI",
		"## Policies (1)",
		"### 1. AI in Coursework",
		"- **Status:** active",
		"- **Source:** https://uni.edu/ai",
		"- [AI Policy](https://uni.edu/ai) (webpage, retrieved 2025-03-01)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(out, "full text") {
		t.Error("content rendered without IncludeContent")
	}

	b.Reset()
	NewRenderer(true).WriteResearchMarkdown(&b, "Uni", sampleResult())
	if !strings.Contains(b.String(), "full text") {
		t.Error("content missing with IncludeContent")
	}
}

func TestRenderer_EmptySummary(t *testing.T) {
	var b strings.Builder
	NewRenderer(false).WriteResearchMarkdown(&b, "Uni", &model.ResearchResult{})
	if !strings.Contains(b.String(), "_No summary available._") {
		t.Errorf("got %q", b.String())
	}
}

func TestRenderer_CrossReferenceMarkdown(t *testing.T) {
	res := &model.CrossReferenceResult{
		Reliability: 0.85,
		Relevance:   0.6,
		Confidence:  0.8,
		VerifiedClaims: []model.Claim{
			{Text: "AI is permitted", Confidence: 0.8, SupportingSources: []string{"see https://uni.edu/ai"}},
		},
		SuggestedUpdates: []string{`Verify claim: "Exams are in May"`},
		Metadata: model.VerificationMeta{
			Method:       model.VerificationMethod,
			SourceCount:  1,
			LastVerified: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	var b strings.Builder
	NewRenderer(false).WriteCrossReferenceMarkdown(&b, "https://uni.edu/ai", res)
	out := b.String()
	for _, want := range []string{
		"| Reliability | 0.85 |",
		"- 80% AI is permitted",
		"  - see https://uni.edu/ai",
		"## Suggested Updates",
		"_Method: multi-source-validation, 1 supporting sources",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderer_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := NewRenderer(false).RenderJSON(sampleResult(), path); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got model.ResearchResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Policies[0].Title != "AI in Coursework" || got.Sources[0].URL != "https://uni.edu/ai" {
		t.Errorf("round trip lost data: %+v", got)
	}
}
