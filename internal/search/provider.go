package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// Client is a web search backend
type Client interface {
	Search(ctx context.Context, query string, count int) ([]model.SearchResult, error)
}

// DefaultCount is the number of results requested per query
const DefaultCount = 30

// PolicyQueries returns the site-scoped queries issued for a domain, in order
func PolicyQueries(domain string) []string {
	return []string{
		fmt.Sprintf("site:%s artificial intelligence AI policy", domain),
		fmt.Sprintf("site:%s AI guidelines", domain),
		fmt.Sprintf("site:%s AI resources", domain),
	}
}

// Provider finds candidate policy pages on one domain
type Provider struct {
	client Client
	count  int
	logger *slog.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithCount sets the number of results requested per query
func WithCount(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.count = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a Provider over client
func NewProvider(client Client, opts ...Option) *Provider {
	p := &Provider{
		client: client,
		count:  DefaultCount,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SearchPolicies runs every policy query for domain and merges the hits.
// Results keep query order, URLs are unique (first occurrence wins) and
// every URL contains the domain, compared case-insensitively. Any backend
// failure aborts with a *model.SearchError.
func (p *Provider) SearchPolicies(ctx context.Context, domain string) ([]model.SearchResult, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, &model.SearchError{Err: errors.New("empty domain")}
	}
	needle := strings.ToLower(domain)

	var results []model.SearchResult
	seen := make(map[string]bool)

	for _, query := range PolicyQueries(domain) {
		hits, err := p.client.Search(ctx, query, p.count)
		if err != nil {
			return nil, &model.SearchError{Query: query, Err: err}
		}

		kept := 0
		for _, hit := range hits {
			if hit.URL == "" || seen[hit.URL] {
				continue
			}
			if !strings.Contains(strings.ToLower(hit.URL), needle) {
				continue
			}
			seen[hit.URL] = true
			results = append(results, hit)
			kept++
		}
		p.logger.Debug("search query done", "query", query, "hits", len(hits), "kept", kept)
	}

	return results, nil
}
