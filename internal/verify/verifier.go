package verify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/worker"
)

// DefaultMaxContentChars is the prefix of a source submitted for claim extraction
const DefaultMaxContentChars = 2000

const claimsPrompt = `Extract key claims about AI policies from this source:
%s

List each claim separately, one per line, focusing on:
1. Policy statements
2. Implementation details
3. Restrictions and guidelines
4. Dates and timelines`

const verificationPrompt = `Verify this claim about university AI policy:
"%s"

Consider:
1. Consistency with known policies
2. Alignment with standard practices
3. Credibility of supporting evidence

Provide:
1. Confidence score (0-1), on a line starting with "Confidence:"
2. List of supporting sources, one URL per line`

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)(%?)`)

// Verifier extracts claims from a source and scores each one
type Verifier struct {
	provider    llm.Provider
	scorer      *Scorer
	maxChars    int
	maxTokens   int
	concurrency int
	logger      *slog.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithScoring replaces the default scoring weights
func WithScoring(cfg model.ScoringConfig) Option {
	return func(v *Verifier) { v.scorer = NewScorer(cfg) }
}

// WithMaxContentChars sets how much of a source is submitted
func WithMaxContentChars(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxChars = n
		}
	}
}

// WithMaxTokens bounds every model answer; zero leaves the provider default
func WithMaxTokens(n int) Option {
	return func(v *Verifier) { v.maxTokens = n }
}

// WithConcurrency sets how many claims are verified at once
func WithConcurrency(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Verifier
func New(provider llm.Provider, opts ...Option) *Verifier {
	v := &Verifier{
		provider:    provider,
		scorer:      NewScorer(model.DefaultScoringConfig()),
		maxChars:    DefaultMaxContentChars,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CrossReference assesses one source. Claim extraction failing is a
// *model.VerificationError; a failure verifying a single claim only
// degrades that claim to the neutral confidence.
func (v *Verifier) CrossReference(ctx context.Context, source model.SourceRecord) (*model.CrossReferenceResult, error) {
	claims, err := v.ExtractClaims(ctx, source.Content)
	if err != nil {
		return nil, &model.VerificationError{URL: source.URL, Err: err}
	}

	outcomes := worker.Map(ctx, v.concurrency, claims, func(ctx context.Context, claim string) (model.Claim, error) {
		return v.verifyClaim(ctx, claim), nil
	})

	verified := make([]model.Claim, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			// Only possible when ctx was cancelled before the claim started
			verified[i] = model.Claim{Text: claims[i], Confidence: v.scorer.cfg.NeutralScore, SupportingSources: []string{}}
			continue
		}
		verified[i] = o.Value
	}

	result := v.scorer.Score(source.URL, verified)
	v.logger.Debug("cross-referenced source",
		"url", source.URL,
		"claims", len(verified),
		"reliability", result.Reliability,
		"relevance", result.Relevance)
	return result, nil
}

// ExtractClaims asks the model to list the claims in content. Every
// non-empty trimmed line of the answer is one claim.
func (v *Verifier) ExtractClaims(ctx context.Context, content string) ([]string, error) {
	text, err := llm.Text(ctx, v.provider, fmt.Sprintf(claimsPrompt, llm.Truncate(content, v.maxChars)), v.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	return llm.Lines(text), nil
}

func (v *Verifier) verifyClaim(ctx context.Context, claim string) model.Claim {
	neutral := v.scorer.cfg.NeutralScore

	text, err := llm.Text(ctx, v.provider, fmt.Sprintf(verificationPrompt, claim), v.maxTokens)
	if err != nil {
		v.logger.Warn("claim verification degraded to neutral confidence", "claim", claim, "error", err)
		return model.Claim{Text: claim, Confidence: neutral, SupportingSources: []string{}}
	}

	return model.Claim{
		Text:              claim,
		Confidence:        ParseConfidence(text, neutral),
		SupportingSources: SupportingSources(text),
	}
}

// ParseConfidence reads the number after the first ':' on the first line
// labeled "Confidence" that carries one. Lines mentioning the label without
// a value are skipped. A trailing '%' is read as a percentage. Without a
// usable value the result is fallback; it is clamped to [0,1].
func ParseConfidence(text string, fallback float64) float64 {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "Confidence") {
			continue
		}
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		value = strings.TrimLeft(strings.TrimSpace(value), "*_ \t")
		m := leadingNumber.FindStringSubmatch(value)
		if m == nil {
			continue
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.HasPrefix(m[0], "-") {
			f = -f
		}
		if m[3] == "%" {
			f /= 100
		}
		return model.Clamp01(f)
	}
	return model.Clamp01(fallback)
}

// SupportingSources returns every trimmed line containing "http"
func SupportingSources(text string) []string {
	sources := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "http") {
			sources = append(sources, strings.TrimSpace(line))
		}
	}
	return sources
}
