package verify

import (
	"strings"

	"github.com/ppiankov/policyscout/internal/model"
)

// Reputation scores a source URL by the first rule whose pattern occurs in
// the lowercased URL. Rules are checked in order.
type Reputation struct {
	rules    []model.ReputationRule
	fallback float64
}

// NewReputation creates a table from rules; URLs matching none get fallback
func NewReputation(rules []model.ReputationRule, fallback float64) *Reputation {
	normalized := make([]model.ReputationRule, 0, len(rules))
	for _, r := range rules {
		p := strings.ToLower(strings.TrimSpace(r.Pattern))
		if p == "" {
			continue
		}
		normalized = append(normalized, model.ReputationRule{Pattern: p, Score: model.Clamp01(r.Score)})
	}
	return &Reputation{rules: normalized, fallback: model.Clamp01(fallback)}
}

// Score returns the reputation of rawURL
func (r *Reputation) Score(rawURL string) float64 {
	lower := strings.ToLower(rawURL)
	for _, rule := range r.rules {
		if strings.Contains(lower, rule.Pattern) {
			return rule.Score
		}
	}
	return r.fallback
}
