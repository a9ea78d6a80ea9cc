package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/policyscout/internal/model"
	"github.com/ppiankov/policyscout/internal/util"
	"github.com/ppiankov/policyscout/internal/worker"
)

// Fetcher retrieves and parses one page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.ScrapedDocument, error)
}

// ErrDisallowed is returned for URLs blocked by robots.txt
var ErrDisallowed = errors.New("disallowed by robots.txt")

// HTTPFetcher fetches pages over HTTP and parses them with goquery
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithRobots enables robots.txt compliance
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *HTTPFetcher) { f.robots = r }
}

// WithLimiter enables per-host politeness
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *HTTPFetcher) { f.limiter = l }
}

// WithFetchLogger sets the logger
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher creates a fetcher from the HTTP settings
func NewHTTPFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFetcherFromConfig wires robots.txt and rate limiting as configured
func NewFetcherFromConfig(cfg *model.Config, logger *slog.Logger) *HTTPFetcher {
	var opts []FetcherOption
	if cfg.Crawl.RespectRobots {
		opts = append(opts, WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, &http.Client{Timeout: cfg.HTTP.Timeout})))
	}
	if cfg.RateLimiting.Enabled {
		opts = append(opts, WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)))
	}
	opts = append(opts, WithFetchLogger(logger))
	return NewHTTPFetcher(cfg.HTTP, opts...)
}

// Fetch retrieves rawURL and parses it into a document. Every failure is a
// *model.CrawlError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.ScrapedDocument, error) {
	doc, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, &model.CrawlError{URL: rawURL, Err: err}
	}
	return doc, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) (*model.ScrapedDocument, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			f.logger.Debug("robots.txt disallows page", "url", rawURL)
			return nil, ErrDisallowed
		}
		f.limiter.RespectCrawlDelay(rawURL, delay)
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	f.logger.Debug("fetched page", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))

	finalURL := resp.Request.URL
	lastModified := resp.Header.Get("Last-Modified")

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "" || strings.Contains(mediaType, "html") || strings.Contains(mediaType, "xml"):
		return parseHTML(rawURL, finalURL, body, lastModified)
	case strings.HasPrefix(mediaType, "text/"):
		return &model.ScrapedDocument{
			URL:     rawURL,
			Content: collapseSpace(string(body)),
			Metadata: model.DocumentMeta{
				LastModified: lastModified,
				Type:         model.InferDocumentType(rawURL),
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// parseHTML extracts title, visible body text, links and meta tags.
// Links are resolved against base, the URL after redirects.
func parseHTML(rawURL string, base *url.URL, body []byte, lastModified string) (*model.ScrapedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var content string
	if bodySel := doc.Find("body"); bodySel.Length() > 0 {
		content = visibleText(bodySel.Nodes[0])
	} else {
		content = visibleText(doc.Nodes[0])
	}

	if v, ok := doc.Find(`meta[name="last-modified"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		lastModified = strings.TrimSpace(v)
	}
	author, _ := doc.Find(`meta[name="author"]`).Attr("content")

	return &model.ScrapedDocument{
		URL:     rawURL,
		Title:   collapseSpace(title),
		Content: content,
		Links:   extractLinks(doc, base),
		Metadata: model.DocumentMeta{
			LastModified: lastModified,
			Author:       strings.TrimSpace(author),
			Type:         model.InferDocumentType(rawURL),
		},
	}, nil
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := resolveLink(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links
}

// resolveLink returns href as an absolute http(s) URL without fragment,
// or "" when it is not crawlable
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String()
}
