package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/policyscout/internal/llm"
	"github.com/ppiankov/policyscout/internal/model"
)

// DefaultMaxTokens bounds the resolution answer
const DefaultMaxTokens = 100

const domainPrompt = `Given the university name "%s", provide ONLY the official website domain (e.g., "stanford.edu" or "mit.edu").
Return ONLY the domain, nothing else.`

// Resolver infers an institution's web domain from its name
type Resolver struct {
	provider  llm.Provider
	maxTokens int
	logger    *slog.Logger
}

// New creates a Resolver; maxTokens <= 0 uses DefaultMaxTokens
func New(provider llm.Provider, maxTokens int, logger *slog.Logger) *Resolver {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: provider, maxTokens: maxTokens, logger: logger}
}

// Resolve asks the model for name's domain. The answer is trimmed and
// lowercased; an empty answer or one without a '.' is a
// *model.ResolutionError. The domain is not checked against DNS.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &model.ResolutionError{Reason: "empty institution name"}
	}

	answer, err := llm.Text(ctx, r.provider, fmt.Sprintf(domainPrompt, name), r.maxTokens)
	if err != nil {
		return "", &model.ResolutionError{Name: name, Reason: "completion failed", Err: err}
	}

	domain := strings.ToLower(strings.TrimSpace(answer))
	if domain == "" || !strings.Contains(domain, ".") {
		return "", &model.ResolutionError{Name: name, Reason: fmt.Sprintf("no domain in answer %q", answer)}
	}

	r.logger.Debug("resolved domain", "institution", name, "domain", domain)
	return domain, nil
}

// NormalizeWebsite reduces a user-supplied website to a bare domain:
// scheme, path, port and a leading "www." are removed and the result is
// lowercased. "https://www.MIT.edu/about" becomes "mit.edu".
func NormalizeWebsite(website string) string {
	d := strings.ToLower(strings.TrimSpace(website))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}
