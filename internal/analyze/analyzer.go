package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
)

// DefaultMaxContentChars is the prefix of a document sent for analysis
const DefaultMaxContentChars = 3000

const analysisPrompt = `Analyze the following university policy document and extract key information:
%s

Provide a structured analysis including:
1. Category (e.g., teaching, research, governance)
2. Title
3. Summary
4. Status (active/draft/archived)
5. Any additional metadata

Answer with one "Label: value" line per item.`

// Analyzer extracts a structured breakdown of one policy document
type Analyzer struct {
	provider  llm.Provider
	extractor Extractor
	maxChars  int
	maxTokens int
	logger    *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithExtractor replaces the default LabelExtractor
func WithExtractor(e Extractor) Option {
	return func(a *Analyzer) {
		if e != nil {
			a.extractor = e
		}
	}
}

// WithMaxContentChars sets how much of a document is submitted
func WithMaxContentChars(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxChars = n
		}
	}
}

// WithMaxTokens bounds the model answer; zero leaves the provider default
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) { a.maxTokens = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Analyzer
func New(provider llm.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider:  provider,
		extractor: LabelExtractor{},
		maxChars:  DefaultMaxContentChars,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze never fails: a completion error is logged and the default
// analysis is returned
func (a *Analyzer) Analyze(ctx context.Context, content string) model.PolicyAnalysis {
	analysis, err := a.AnalyzeDetailed(ctx, content)
	if err != nil {
		a.logger.Warn("policy analysis degraded to defaults", "error", err)
	}
	return analysis
}

// AnalyzeDetailed is Analyze for callers that want the completion error.
// The returned analysis is usable even when err is non-nil.
func (a *Analyzer) AnalyzeDetailed(ctx context.Context, content string) (model.PolicyAnalysis, error) {
	prompt := fmt.Sprintf(analysisPrompt, llm.Truncate(content, a.maxChars))

	text, err := llm.Text(ctx, a.provider, prompt, a.maxTokens)
	if err != nil {
		return model.DefaultAnalysis(), fmt.Errorf("analyze document: %w", err)
	}
	return a.extractor.Extract(text), nil
}
