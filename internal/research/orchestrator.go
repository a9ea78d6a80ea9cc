package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/policyscout/internal/analyze"
	"github.com/ppiankov/policyscout/internal/crawl"
	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/resolve"
	"github.com/ppiankov/policyscout/internal/search"
	"github.com/ppiankov/policyscout/internal/verify"
	"github.com/ppiankov/policyscout/internal/worker"
)

// DomainResolver infers a domain from an institution name
type DomainResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// PolicySearcher finds candidate pages on a domain
type PolicySearcher interface {
	SearchPolicies(ctx context.Context, domain string) ([]model.SearchResult, error)
}

// DocumentAnalyzer extracts a structured analysis; it never fails
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, content string) model.PolicyAnalysis
}

// SourceVerifier cross-references one source
type SourceVerifier interface {
	CrossReference(ctx context.Context, source model.SourceRecord) (*model.CrossReferenceResult, error)
}

// PageCrawler collects documents reachable from one seed
type PageCrawler interface {
	Crawl(ctx context.Context) []model.ScrapedDocument
}

// CrawlerFactory creates a fresh crawler per seed URL
type CrawlerFactory func(seed string) PageCrawler

const summaryPrompt = `Summarize the following university AI policies:
%s

Provide a comprehensive summary focusing on:
1. Overall AI strategy
2. Key policy areas
3. Notable restrictions or guidelines
4. Implementation timeline`

// Components are the collaborators of an Orchestrator
type Components struct {
	Resolver   DomainResolver
	Searcher   PolicySearcher
	NewCrawler CrawlerFactory
	Analyzer   DocumentAnalyzer
	Verifier   SourceVerifier
	Summarizer llm.Provider
}

// Orchestrator runs the research pipeline for one institution at a time
type Orchestrator struct {
	components       Components
	concurrency      int
	summaryMaxTokens int
	logger           *slog.Logger
	now              func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithConcurrency sets how many search results are processed at once
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithSummaryMaxTokens bounds the summary answer
func WithSummaryMaxTokens(n int) Option {
	return func(o *Orchestrator) { o.summaryMaxTokens = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator from its components
func New(c Components, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		components:  c,
		concurrency: 1,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewFromConfig wires the default components around provider, the search
// backend and the page fetcher
func NewFromConfig(cfg *model.Config, provider llm.Provider, searchClient search.Client, fetcher crawl.Fetcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	return New(Components{
		Resolver: resolve.New(provider, cfg.LLM.ResolveMaxTokens, logger),
		Searcher: search.NewProvider(searchClient,
			search.WithCount(cfg.Search.Count),
			search.WithLogger(logger)),
		NewCrawler: func(seed string) PageCrawler {
			return crawl.New(seed, fetcher,
				crawl.WithMaxPages(cfg.Crawl.MaxPages),
				crawl.WithLogger(logger))
		},
		Analyzer: analyze.New(provider,
			analyze.WithMaxContentChars(cfg.Analysis.MaxContentChars),
			analyze.WithMaxTokens(cfg.LLM.MaxTokens),
			analyze.WithLogger(logger)),
		Verifier: verify.New(provider,
			verify.WithScoring(cfg.Scoring),
			verify.WithMaxContentChars(cfg.Verify.MaxContentChars),
			verify.WithMaxTokens(cfg.LLM.MaxTokens),
			verify.WithConcurrency(cfg.Verify.Concurrency),
			verify.WithLogger(logger)),
		Summarizer: provider,
	},
		WithConcurrency(cfg.Research.Concurrency),
		WithSummaryMaxTokens(cfg.LLM.MaxTokens),
		WithLogger(logger),
	)
}

type resultRecords struct {
	policies []model.PolicyRecord
	sources  []model.SourceRecord
}

// ResearchUniversity discovers and analyzes the AI policies of one
// institution. The domain comes from website when given, otherwise it is
// resolved from name. Resolution and search failures abort the run; a
// failure on one search result only drops that result.
func (o *Orchestrator) ResearchUniversity(ctx context.Context, name, website string) (*model.ResearchResult, error) {
	logger := o.logger.With("run", uuid.NewString(), "institution", name)

	domain, err := o.domain(ctx, name, website)
	if err != nil {
		return nil, err
	}
	logger = logger.With("domain", domain)

	results, err := o.components.Searcher.SearchPolicies(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("research %s: %w", name, err)
	}
	logger.Info("search complete", "results", len(results))

	outcomes := worker.Map(ctx, o.concurrency, results, func(ctx context.Context, r model.SearchResult) (resultRecords, error) {
		return o.processResult(ctx, r)
	})

	out := &model.ResearchResult{
		Policies: []model.PolicyRecord{},
		Sources:  []model.SourceRecord{},
	}
	for i, oc := range outcomes {
		if oc.Err != nil {
			logger.Warn("skipping search result", "url", results[i].URL, "error", oc.Err)
			continue
		}
		out.Policies = append(out.Policies, oc.Value.policies...)
		out.Sources = append(out.Sources, oc.Value.sources...)
	}

	out.Summary = o.summarize(ctx, logger, out.Policies)

	logger.Info("research complete", "policies", len(out.Policies))
	return out, nil
}

// CrossReferenceSource assesses one stored source
func (o *Orchestrator) CrossReferenceSource(ctx context.Context, source model.SourceRecord) (*model.CrossReferenceResult, error) {
	return o.components.Verifier.CrossReference(ctx, source)
}

func (o *Orchestrator) domain(ctx context.Context, name, website string) (string, error) {
	if website != "" {
		if d := resolve.NormalizeWebsite(website); d != "" {
			return d, nil
		}
	}
	return o.components.Resolver.Resolve(ctx, name)
}

// processResult crawls from one search hit and pairs one policy with one
// source per document
func (o *Orchestrator) processResult(ctx context.Context, r model.SearchResult) (resultRecords, error) {
	docs := o.components.NewCrawler(r.URL).Crawl(ctx)
	if err := ctx.Err(); err != nil {
		return resultRecords{}, err
	}

	description := r.Description
	if description == "" {
		description = "Policy document from " + r.URL
	}

	var rec resultRecords
	for _, doc := range docs {
		analysis := o.components.Analyzer.Analyze(ctx, doc.Content)
		now := o.now().UTC()

		rec.policies = append(rec.policies, model.PolicyRecord{
			Category:    analysis.Category,
			Title:       analysis.Title,
			Content:     doc.Content,
			Status:      analysis.Status,
			Summary:     analysis.Summary,
			LastUpdated: now,
		})
		rec.sources = append(rec.sources, model.SourceRecord{
			URL:           doc.URL,
			Title:         r.Title,
			Type:          model.SourceWebpage,
			RetrievalDate: now,
			Content:       doc.Content,
			Metadata: model.SourceMetadata{
				Description:  description,
				DocumentType: string(doc.Metadata.Type),
				LastModified: doc.Metadata.LastModified,
				Author:       doc.Metadata.Author,
			},
		})
	}
	return rec, nil
}

// summarize degrades to an empty summary on failure
func (o *Orchestrator) summarize(ctx context.Context, logger *slog.Logger, policies []model.PolicyRecord) string {
	if o.components.Summarizer == nil {
		return ""
	}

	payload, err := json.MarshalIndent(policies, "", "  ")
	if err != nil {
		logger.Warn("summary skipped", "error", err)
		return ""
	}

	text, err := llm.Text(ctx, o.components.Summarizer, fmt.Sprintf(summaryPrompt, payload), o.summaryMaxTokens)
	if err != nil {
		logger.Warn("summary generation failed", "error", err)
		return ""
	}
	return text
}
