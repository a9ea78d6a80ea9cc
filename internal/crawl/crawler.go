package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// DefaultMaxPages is the page budget of one crawl
const DefaultMaxPages = 10

// PolicyKeywords select which links are followed
var PolicyKeywords = []string{"policy", "policies", "guidelines", "rules", "ai", "artificial-intelligence"}

// Crawler walks policy-related pages breadth-first from one seed URL.
// Links are followed within the seed's directory (see Scope), which is
// wider than the seed itself: a seed of https://uni.edu/ai-policy admits
// https://uni.edu/ai-guidelines. Keywords are matched on path and query only.
// Its frontier and visited set belong to this instance only; use one
// Crawler per seed and do not share it between goroutines.
type Crawler struct {
	seed     string
	scope    string
	fetcher  Fetcher
	maxPages int
	logger   *slog.Logger

	frontier []string
	queued   map[string]bool
	visited  map[string]bool
}

// Option configures a Crawler
type Option func(*Crawler)

// WithMaxPages sets the page budget
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a crawler seeded at seed
func New(seed string, fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		seed:     seed,
		scope:    Scope(seed),
		fetcher:  fetcher,
		maxPages: DefaultMaxPages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches up to the page budget of documents. A page that cannot be
// fetched is logged, marked visited and skipped. Cancelling ctx stops the
// crawl and returns what was collected so far.
func (c *Crawler) Crawl(ctx context.Context) []model.ScrapedDocument {
	c.frontier = []string{c.seed}
	c.queued = map[string]bool{c.seed: true}
	c.visited = make(map[string]bool)

	var docs []model.ScrapedDocument

	for len(c.frontier) > 0 && len(docs) < c.maxPages {
		if ctx.Err() != nil {
			c.logger.Debug("crawl cancelled", "seed", c.seed, "documents", len(docs))
			break
		}

		next := c.frontier[0]
		c.frontier = c.frontier[1:]
		delete(c.queued, next)

		if c.visited[next] {
			continue
		}
		c.visited[next] = true

		doc, err := c.fetcher.Fetch(ctx, next)
		if err != nil {
			var ce *model.CrawlError
			if !errors.As(err, &ce) {
				err = &model.CrawlError{URL: next, Err: err}
			}
			c.logger.Warn("skipping page", "url", next, "error", err)
			continue
		}

		doc.URL = next
		doc.Metadata.Type = model.InferDocumentType(next)
		docs = append(docs, *doc)

		for _, link := range doc.Links {
			if c.visited[link] || c.queued[link] || !c.follows(link) {
				continue
			}
			c.queued[link] = true
			c.frontier = append(c.frontier, link)
		}
	}

	c.logger.Debug("crawl finished", "seed", c.seed, "documents", len(docs), "visited", len(c.visited))
	return docs
}

// Frontier returns the URLs still queued after the last Crawl
func (c *Crawler) Frontier() []string {
	return append([]string(nil), c.frontier...)
}

func (c *Crawler) follows(link string) bool {
	if !strings.HasPrefix(link, c.scope) {
		return false
	}
	return IsPolicyRelated(link)
}

// IsPolicyRelated reports whether the path or query of link contains a
// policy keyword, case-insensitively. The host is ignored so that a domain
// such as hawaii.edu does not match every page.
func IsPolicyRelated(link string) bool {
	target := strings.ToLower(link)
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		target = strings.ToLower(u.EscapedPath() + "?" + u.RawQuery)
	}
	for _, kw := range PolicyKeywords {
		if strings.Contains(target, kw) {
			return true
		}
	}
	return false
}

// Scope returns the URL prefix a crawl from seed stays within: the seed up
// to and including the last '/' of its path. A seed of
// https://uni.edu/ai-policy is scoped to https://uni.edu/.
func Scope(seed string) string {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return seed
	}
	u.RawQuery = ""
	u.Fragment = ""
	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[:i+1]
	} else {
		path = "/"
	}
	u.Path = path
	u.RawPath = ""
	return u.String()
}
