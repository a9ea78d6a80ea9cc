package llm

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ppiankov/policyscout/internal/cache"
)

// CachedProvider memoizes completions by prompt. The same policy page is
// often reachable from several search results; identical prompts are
// answered once per TTL.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with c
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped provider name
func (p *CachedProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Stats reports the wrapped cache's counters, zero when it keeps none
func (p *CachedProvider) Stats() cache.Stats {
	if r, ok := p.cache.(cache.StatsReporter); ok {
		return r.Stats()
	}
	return cache.Stats{}
}

// Complete returns a cached response when present, otherwise calls through
func (p *CachedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := cache.CacheKey("completion", p.next.Name(), req.Model, strconv.Itoa(req.MaxTokens), req.System, req.Prompt)

	if data, ok := p.cache.Get(key); ok {
		if r, ok := p.cache.(cache.StatsReporter); ok {
			s := r.Stats()
			slog.Debug("completion cache hit", "provider", p.next.Name(), "hits", s.Hits(), "misses", s.Misses)
		}
		return &CompletionResponse{Text: string(data), Model: req.Model}, nil
	}

	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(key, []byte(resp.Text), p.ttl); err != nil {
		slog.Debug("completion cache write failed", "error", err)
	}
	return resp, nil
}
