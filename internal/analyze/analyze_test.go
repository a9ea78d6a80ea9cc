package analyze

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLabelExtractor(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.PolicyAnalysis
	}{
		{
			name: "missing status",
			text: "Category: research\nTitle: AI Use Guidelines",
			want: model.PolicyAnalysis{Category: "research", Title: "AI Use Guidelines", Status: model.StatusUnknown},
		},
		{
			name: "all labels with markdown",
			text: "1. **Category:** teaching\n2. **Title:** Generative AI in Courses\n3. **Summary:** Instructors decide: case by case.\n4. **Status:** Active (since 2024)\n",
			want: model.PolicyAnalysis{
				Category: "teaching",
				Title:    "Generative AI in Courses",
				Summary:  "Instructors decide: case by case.",
				Status:   model.StatusActive,
			},
		},
		{
			name: "first line wins",
			text: "Category: governance\nCategory: research",
			want: model.PolicyAnalysis{Category: "governance", Title: model.DefaultTitle, Status: model.StatusUnknown},
		},
		{
			name: "label without colon",
			text: "Title unavailable\nStatus: draft",
			want: model.PolicyAnalysis{Category: model.DefaultCategory, Title: model.DefaultTitle, Status: model.StatusDraft},
		},
		{
			name: "status outside enum",
			text: "Status: pending review",
			want: model.PolicyAnalysis{Category: model.DefaultCategory, Title: model.DefaultTitle, Status: model.StatusUnknown},
		},
		{
			name: "garbage",
			text: "\x00\x01 ::: \n\n",
			want: model.DefaultAnalysis(),
		},
		{
			name: "empty",
			text: "",
			want: model.DefaultAnalysis(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (LabelExtractor{}).Extract(tt.text); got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Fallback = "Category: research\nTitle: AI Use Guidelines"

	got := New(mock, WithLogger(quietLogger())).Analyze(context.Background(), "policy text")

	if got.Category != "research" || got.Title != "AI Use Guidelines" || got.Status != model.StatusUnknown {
		t.Errorf("unexpected analysis: %+v", got)
	}
}

func TestAnalyze_TruncatesContent(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Fallback = "Title: x"

	content := strings.Repeat("a", 2990) + strings.Repeat("Z", 100)
	New(mock, WithLogger(quietLogger())).Analyze(context.Background(), content)

	prompt := mock.Calls[0].Prompt
	if strings.Count(prompt, "Z") != 10 {
		t.Errorf("expected content cut at 3000 characters, found %d trailing runes", strings.Count(prompt, "Z"))
	}

	mock.Calls = nil
	New(mock, WithMaxContentChars(10), WithLogger(quietLogger())).Analyze(context.Background(), content)
	if strings.Contains(mock.Calls[0].Prompt, "aaaaaaaaaaa") {
		t.Error("expected custom limit to apply")
	}
}

func TestAnalyze_CompletionFailureDegrades(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Err = errors.New("timeout")

	a := New(mock, WithLogger(quietLogger()))
	if got := a.Analyze(context.Background(), "text"); got != model.DefaultAnalysis() {
		t.Errorf("expected defaults, got %+v", got)
	}

	got, err := a.AnalyzeDetailed(context.Background(), "text")
	if !errors.Is(err, model.ErrCompletion) {
		t.Errorf("expected ErrCompletion, got %v", err)
	}
	if got != model.DefaultAnalysis() {
		t.Errorf("expected defaults alongside error, got %+v", got)
	}
}

type upperExtractor struct{}

func (upperExtractor) Extract(text string) model.PolicyAnalysis {
	a := model.DefaultAnalysis()
	a.Title = strings.ToUpper(text)
	return a
}

func TestAnalyze_CustomExtractor(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.Fallback = "json-ish"

	got := New(mock, WithExtractor(upperExtractor{}), WithLogger(quietLogger())).Analyze(context.Background(), "x")
	if got.Title != "JSON-ISH" {
		t.Errorf("expected custom extractor to be used, got %+v", got)
	}
}
