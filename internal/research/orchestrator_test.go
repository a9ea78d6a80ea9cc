package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResolver struct {
	domain string
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, name string) (string, error) {
	f.calls++
	return f.domain, f.err
}

type fakeSearcher struct {
	results []model.SearchResult
	err     error
	domains []string
}

func (f *fakeSearcher) SearchPolicies(ctx context.Context, domain string) ([]model.SearchResult, error) {
	f.domains = append(f.domains, domain)
	return f.results, f.err
}

type staticCrawler []model.ScrapedDocument

func (s staticCrawler) Crawl(ctx context.Context) []model.ScrapedDocument { return s }

type titleAnalyzer struct{}

func (titleAnalyzer) Analyze(ctx context.Context, content string) model.PolicyAnalysis {
	a := model.DefaultAnalysis()
	a.Title = "About " + content
	a.Status = model.StatusActive
	return a
}

type countingVerifier struct {
	mu    sync.Mutex
	calls []string
}

func (v *countingVerifier) CrossReference(ctx context.Context, s model.SourceRecord) (*model.CrossReferenceResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, s.URL)
	return &model.CrossReferenceResult{Reliability: 0.8}, nil
}

func crawlerFor(pages map[string][]model.ScrapedDocument) CrawlerFactory {
	return func(seed string) PageCrawler {
		return staticCrawler(pages[seed])
	}
}

func doc(url, content string) model.ScrapedDocument {
	return model.ScrapedDocument{URL: url, Content: content, Metadata: model.DocumentMeta{Type: model.DocPolicy}}
}

func TestResearchUniversity_UsesWebsiteWithoutResolving(t *testing.T) {
	resolver := &fakeResolver{domain: "wrong.edu"}
	searcher := &fakeSearcher{}
	summarizer := llm.NewMockProvider().On("Summarize the following", "Overall strategy")

	o := New(Components{
		Resolver:   resolver,
		Searcher:   searcher,
		NewCrawler: crawlerFor(nil),
		Analyzer:   titleAnalyzer{},
		Summarizer: summarizer,
	}, WithLogger(quietLogger()))

	res, err := o.ResearchUniversity(context.Background(), "MIT", "https://www.MIT.edu/")
	if err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times, want 0", resolver.calls)
	}
	if len(searcher.domains) != 1 || searcher.domains[0] != "mit.edu" {
		t.Errorf("searched %v, want [mit.edu]", searcher.domains)
	}
	if res.Policies == nil || res.Sources == nil {
		t.Error("empty result should carry empty slices, not nil")
	}
	if res.Summary != "Overall strategy" {
		t.Errorf("Summary = %q", res.Summary)
	}
}

func TestResearchUniversity_ResolvesWhenNoWebsite(t *testing.T) {
	resolver := &fakeResolver{domain: "stanford.edu"}
	searcher := &fakeSearcher{}

	o := New(Components{
		Resolver:   resolver,
		Searcher:   searcher,
		NewCrawler: crawlerFor(nil),
		Analyzer:   titleAnalyzer{},
	}, WithLogger(quietLogger()))

	if _, err := o.ResearchUniversity(context.Background(), "Stanford", ""); err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", resolver.calls)
	}
	if searcher.domains[0] != "stanford.edu" {
		t.Errorf("searched %q", searcher.domains[0])
	}
}

func TestResearchUniversity_StructuralFailuresAbort(t *testing.T) {
	t.Run("resolution", func(t *testing.T) {
		resolveErr := &model.ResolutionError{Name: "Nowhere", Reason: "no domain in answer"}
		searcher := &fakeSearcher{}
		o := New(Components{
			Resolver: &fakeResolver{err: resolveErr},
			Searcher: searcher,
		}, WithLogger(quietLogger()))

		_, err := o.ResearchUniversity(context.Background(), "Nowhere", "")
		if !errors.Is(err, model.ErrResolution) {
			t.Fatalf("err = %v, want ErrResolution", err)
		}
		if len(searcher.domains) != 0 {
			t.Error("search ran after failed resolution")
		}
	})

	t.Run("search", func(t *testing.T) {
		summarizer := llm.NewMockProvider()
		o := New(Components{
			Searcher:   &fakeSearcher{err: &model.SearchError{Query: "q", Err: fmt.Errorf("status 500")}},
			Summarizer: summarizer,
		}, WithLogger(quietLogger()))

		_, err := o.ResearchUniversity(context.Background(), "MIT", "mit.edu")
		if !errors.Is(err, model.ErrSearch) {
			t.Fatalf("err = %v, want ErrSearch", err)
		}
		if summarizer.CallCount() != 0 {
			t.Error("summary generated after failed search")
		}
	})
}

func TestResearchUniversity_PairsPoliciesWithSources(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{
		{URL: "https://uni.edu/ai", Title: "AI Policy", Description: "Official AI policy"},
		{URL: "https://uni.edu/empty", Title: "Empty"},
		{URL: "https://uni.edu/guide", Title: "Guide"},
	}}
	pages := map[string][]model.ScrapedDocument{
		"https://uni.edu/ai":    {doc("https://uni.edu/ai", "one"), doc("https://uni.edu/ai/faq", "two")},
		"https://uni.edu/guide": {doc("https://uni.edu/guide", "three")},
	}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			o := New(Components{
				Searcher:   searcher,
				NewCrawler: crawlerFor(pages),
				Analyzer:   titleAnalyzer{},
				Summarizer: llm.NewMockProvider().On("Summarize", "summary"),
			}, WithConcurrency(workers), WithLogger(quietLogger()))

			res, err := o.ResearchUniversity(context.Background(), "Uni", "uni.edu")
			if err != nil {
				t.Fatalf("ResearchUniversity: %v", err)
			}
			if len(res.Policies) != 3 || len(res.Sources) != 3 {
				t.Fatalf("got %d policies, %d sources, want 3 each", len(res.Policies), len(res.Sources))
			}

			wantURLs := []string{"https://uni.edu/ai", "https://uni.edu/ai/faq", "https://uni.edu/guide"}
			for i, want := range wantURLs {
				if res.Sources[i].URL != want {
					t.Errorf("Sources[%d].URL = %q, want %q", i, res.Sources[i].URL, want)
				}
				if res.Policies[i].Content != res.Sources[i].Content {
					t.Errorf("policy %d not paired with its source", i)
				}
				if res.Sources[i].Type != model.SourceWebpage {
					t.Errorf("Sources[%d].Type = %q", i, res.Sources[i].Type)
				}
			}

			if got := res.Sources[0].Metadata.Description; got != "Official AI policy" {
				t.Errorf("description = %q", got)
			}
			if got := res.Sources[2].Metadata.Description; got != "Policy document from https://uni.edu/guide" {
				t.Errorf("fallback description = %q", got)
			}
			if res.Sources[1].Title != "AI Policy" {
				t.Errorf("source title = %q, want search result title", res.Sources[1].Title)
			}
			if res.Policies[0].Title != "About one" || res.Policies[0].Status != model.StatusActive {
				t.Errorf("policy analysis not applied: %+v", res.Policies[0])
			}
		})
	}
}

func TestResearchUniversity_SummaryFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{{URL: "https://uni.edu/ai"}}}
	summarizer := llm.NewMockProvider().FailOn("Summarize", errors.New("rate limited"))

	o := New(Components{
		Searcher:   searcher,
		NewCrawler: crawlerFor(map[string][]model.ScrapedDocument{"https://uni.edu/ai": {doc("https://uni.edu/ai", "x")}}),
		Analyzer:   titleAnalyzer{},
		Summarizer: summarizer,
	}, WithLogger(quietLogger()))

	res, err := o.ResearchUniversity(context.Background(), "Uni", "uni.edu")
	if err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}
	if res.Summary != "" {
		t.Errorf("Summary = %q, want empty", res.Summary)
	}
	if len(res.Policies) != 1 {
		t.Errorf("policies = %d, want 1", len(res.Policies))
	}
}

func TestResearchUniversity_SummaryPromptCarriesPolicies(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{{URL: "https://uni.edu/ai"}}}
	summarizer := llm.NewMockProvider().On("Summarize", "ok")

	o := New(Components{
		Searcher:   searcher,
		NewCrawler: crawlerFor(map[string][]model.ScrapedDocument{"https://uni.edu/ai": {doc("https://uni.edu/ai", "generative tools")}}),
		Analyzer:   titleAnalyzer{},
		Summarizer: summarizer,
	}, WithLogger(quietLogger()))

	if _, err := o.ResearchUniversity(context.Background(), "Uni", "uni.edu"); err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}

	prompt := summarizer.Calls[0].Prompt
	for _, want := range []string{`"title": "About generative tools"`, "Overall AI strategy", "Implementation timeline"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("summary prompt missing %q", want)
		}
	}
}

func TestResearchUniversity_Cancelled(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{{URL: "https://uni.edu/ai"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(Components{
		Searcher:   searcher,
		NewCrawler: crawlerFor(map[string][]model.ScrapedDocument{"https://uni.edu/ai": {doc("https://uni.edu/ai", "x")}}),
		Analyzer:   titleAnalyzer{},
	}, WithLogger(quietLogger()))

	res, err := o.ResearchUniversity(ctx, "Uni", "uni.edu")
	if err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}
	if len(res.Policies) != 0 {
		t.Errorf("cancelled run produced %d policies", len(res.Policies))
	}
}

func TestCrossReferenceSource_PassesThrough(t *testing.T) {
	v := &countingVerifier{}
	o := New(Components{Verifier: v}, WithLogger(quietLogger()))

	res, err := o.CrossReferenceSource(context.Background(), model.SourceRecord{URL: "https://uni.edu/ai"})
	if err != nil {
		t.Fatalf("CrossReferenceSource: %v", err)
	}
	if res.Reliability != 0.8 || len(v.calls) != 1 || v.calls[0] != "https://uni.edu/ai" {
		t.Errorf("unexpected pass-through: %+v %v", res, v.calls)
	}
}

type mapFetcher map[string]*model.ScrapedDocument

func (m mapFetcher) Fetch(ctx context.Context, url string) (*model.ScrapedDocument, error) {
	if d, ok := m[url]; ok {
		return d, nil
	}
	return nil, &model.CrawlError{URL: url, Err: errors.New("404")}
}

type fakeClient struct {
	results []model.SearchResult
}

func (c fakeClient) Search(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	return c.results, nil
}

func TestNewFromConfig_EndToEnd(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Crawl.MaxPages = 2

	provider := llm.NewMockProvider().
		On("Given the university name", "uni.edu").
		On("Analyze the following", "Category: teaching\nTitle: AI Use Guidelines\nStatus: Active\nSummary: Rules for coursework").
		On("Summarize", "Uni allows AI with disclosure")

	fetcher := mapFetcher{
		"https://uni.edu/ai-policy": {
			URL:     "https://uni.edu/ai-policy",
			Content: "AI policy text",
			Links:   []string{"https://uni.edu/ai-guidelines", "https://uni.edu/about"},
		},
		"https://uni.edu/ai-guidelines": {URL: "https://uni.edu/ai-guidelines", Content: "Guidelines text"},
	}
	client := fakeClient{results: []model.SearchResult{
		{URL: "https://uni.edu/ai-policy", Title: "AI Policy"},
		{URL: "https://other.com/uni.edu", Title: "Off domain"},
	}}

	o := NewFromConfig(cfg, provider, client, fetcher, quietLogger())
	res, err := o.ResearchUniversity(context.Background(), "Uni", "")
	if err != nil {
		t.Fatalf("ResearchUniversity: %v", err)
	}

	if len(res.Policies) != 2 {
		t.Fatalf("policies = %d, want 2", len(res.Policies))
	}
	p := res.Policies[0]
	if p.Category != "teaching" || p.Title != "AI Use Guidelines" || p.Status != model.StatusActive {
		t.Errorf("policy = %+v", p)
	}
	if res.Summary != "Uni allows AI with disclosure" {
		t.Errorf("Summary = %q", res.Summary)
	}
}
