package crawl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ppiankov/policyscout/internal/model"
)

// fakeFetcher serves pages from a map of URL to outbound links
type fakeFetcher struct {
	pages   map[string][]string
	failing map[string]bool
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*model.ScrapedDocument, error) {
	f.fetched = append(f.fetched, rawURL)
	if f.failing[rawURL] {
		return nil, errors.New("connection reset")
	}
	links, ok := f.pages[rawURL]
	if !ok {
		return nil, &model.CrawlError{URL: rawURL, Err: errors.New("404")}
	}
	return &model.ScrapedDocument{URL: rawURL, Title: "page", Content: "text", Links: links}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrawl_BudgetTwo(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://uni.edu/ai-policy":     {"https://uni.edu/ai-guidelines", "https://uni.edu/about"},
		"https://uni.edu/ai-guidelines": {"https://uni.edu/rules"},
		"https://uni.edu/about":         nil,
	}}

	c := New("https://uni.edu/ai-policy", fetcher, WithMaxPages(2), WithLogger(quietLogger()))
	docs := c.Crawl(context.Background())

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].URL != "https://uni.edu/ai-policy" || docs[1].URL != "https://uni.edu/ai-guidelines" {
		t.Errorf("unexpected documents: %s, %s", docs[0].URL, docs[1].URL)
	}
	for _, d := range docs {
		if strings.Contains(d.URL, "about") {
			t.Error("about page must not be crawled")
		}
	}
	if docs[0].Metadata.Type != model.DocPolicy {
		t.Errorf("expected policy type, got %s", docs[0].Metadata.Type)
	}
	for _, u := range c.Frontier() {
		if u == "https://uni.edu/about" {
			t.Error("about page must never be queued")
		}
	}
}

func TestCrawl_NoDuplicatesWithinBudget(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://uni.edu/policies/":  {"https://uni.edu/policies/a", "https://uni.edu/policies/b", "https://uni.edu/policies/a"},
		"https://uni.edu/policies/a": {"https://uni.edu/policies/", "https://uni.edu/policies/b", "https://uni.edu/policies/c"},
		"https://uni.edu/policies/b": {"https://uni.edu/policies/a"},
		"https://uni.edu/policies/c": {"https://uni.edu/policies/d"},
		"https://uni.edu/policies/d": nil,
	}}

	for budget := 1; budget <= 6; budget++ {
		fetcher.fetched = nil
		docs := New("https://uni.edu/policies/", fetcher, WithMaxPages(budget), WithLogger(quietLogger())).Crawl(context.Background())

		if len(docs) > budget {
			t.Errorf("budget %d: got %d documents", budget, len(docs))
		}
		seen := map[string]bool{}
		for _, d := range docs {
			if seen[d.URL] {
				t.Errorf("budget %d: duplicate %s", budget, d.URL)
			}
			seen[d.URL] = true
		}
		fetchedOnce := map[string]bool{}
		for _, u := range fetcher.fetched {
			if fetchedOnce[u] {
				t.Errorf("budget %d: %s fetched twice", budget, u)
			}
			fetchedOnce[u] = true
		}
	}
}

func TestCrawl_NonKeywordLinksNeverQueued(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://hawaii.edu/ai": {"https://hawaii.edu/contact", "https://hawaii.edu/events", "https://hawaii.edu/about"},
	}}

	c := New("https://hawaii.edu/ai", fetcher, WithLogger(quietLogger()))
	docs := c.Crawl(context.Background())

	if len(docs) != 1 {
		t.Errorf("expected only the seed, got %d documents", len(docs))
	}
	if len(c.Frontier()) != 0 {
		t.Errorf("expected empty frontier, got %v", c.Frontier())
	}
}

func TestCrawl_OutOfScopeLinksIgnored(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string][]string{
		"https://uni.edu/policies/": {"https://other.edu/ai-policy", "https://uni.edu/research/ai"},
	}}

	docs := New("https://uni.edu/policies/", fetcher, WithLogger(quietLogger())).Crawl(context.Background())
	if len(docs) != 1 {
		t.Errorf("expected only the seed, got %d", len(docs))
	}
}

func TestCrawl_FailureSkipped(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]string{
			"https://uni.edu/ai":        {"https://uni.edu/ai/broken", "https://uni.edu/ai/rules"},
			"https://uni.edu/ai/broken": nil,
			"https://uni.edu/ai/rules":  nil,
		},
		failing: map[string]bool{"https://uni.edu/ai/broken": true},
	}

	docs := New("https://uni.edu/ai", fetcher, WithLogger(quietLogger())).Crawl(context.Background())

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[1].URL != "https://uni.edu/ai/rules" {
		t.Errorf("expected crawl to continue past failure, got %s", docs[1].URL)
	}
}

func TestCrawl_SeedFailure(t *testing.T) {
	fetcher := &fakeFetcher{failing: map[string]bool{"https://uni.edu/ai": true}}
	if docs := New("https://uni.edu/ai", fetcher, WithLogger(quietLogger())).Crawl(context.Background()); len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
}

func TestCrawl_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{pages: map[string][]string{"https://uni.edu/ai": nil}}
	if docs := New("https://uni.edu/ai", fetcher, WithLogger(quietLogger())).Crawl(ctx); len(docs) != 0 {
		t.Errorf("expected no documents after cancel, got %d", len(docs))
	}
	if len(fetcher.fetched) != 0 {
		t.Error("expected no fetches after cancel")
	}
}

func TestIsPolicyRelated(t *testing.T) {
	tests := map[string]bool{
		"https://uni.edu/ai-policy":               true,
		"https://uni.edu/Academic-POLICIES":       true,
		"https://uni.edu/artificial-intelligence": true,
		"https://uni.edu/about":                   false,
		"https://hawaii.edu/contact":              false,
		"https://uni.edu/search?topic=guidelines": true,
		"https://uni.edu/house-rules":             true,
	}
	for in, want := range tests {
		if got := IsPolicyRelated(in); got != want {
			t.Errorf("IsPolicyRelated(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestScope(t *testing.T) {
	tests := map[string]string{
		"https://uni.edu/ai-policy":       "https://uni.edu/",
		"https://uni.edu/policies/":       "https://uni.edu/policies/",
		"https://uni.edu/policies/ai?x=1": "https://uni.edu/policies/",
		"https://uni.edu":                 "https://uni.edu/",
		"not a url":                       "not a url",
	}
	for in, want := range tests {
		if got := Scope(in); got != want {
			t.Errorf("Scope(%q) = %q, want %q", in, got, want)
		}
	}
}
