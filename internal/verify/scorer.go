package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/policyscout/internal/model"
)

// Scorer turns verified claims into a CrossReferenceResult
type Scorer struct {
	cfg        model.ScoringConfig
	reputation *Reputation
	keywords   []string
	now        func() time.Time
}

// NewScorer creates a scorer from the scoring configuration
func NewScorer(cfg model.ScoringConfig) *Scorer {
	keywords := make([]string, 0, len(cfg.RelevanceKeywords))
	for _, k := range cfg.RelevanceKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Scorer{
		cfg:        cfg,
		reputation: NewReputation(cfg.Reputation, cfg.DefaultReputation),
		keywords:   keywords,
		now:        time.Now,
	}
}

// Score aggregates claims verified for the source at sourceURL.
//
// confidence is the mean claim confidence, reliability blends it with the
// URL reputation and relevance is the scaled share of on-topic claims.
// With no claims the mean and the relevance take the neutral score. All
// three are clamped to [0,1].
func (s *Scorer) Score(sourceURL string, claims []model.Claim) *model.CrossReferenceResult {
	mean := s.cfg.NeutralScore
	sourceCount := 0
	if len(claims) > 0 {
		var sum float64
		for _, c := range claims {
			sum += c.Confidence
			sourceCount += len(c.SupportingSources)
		}
		mean = sum / float64(len(claims))
	}

	verified := claims
	if verified == nil {
		verified = []model.Claim{}
	}

	return &model.CrossReferenceResult{
		Reliability:      model.Clamp01(s.cfg.ConfidenceWeight*mean + s.cfg.DomainWeight*s.reputation.Score(sourceURL)),
		Relevance:        model.Clamp01(s.relevance(claims)),
		Confidence:       model.Clamp01(mean),
		VerifiedClaims:   verified,
		SuggestedUpdates: s.suggestions(claims),
		Metadata: model.VerificationMeta{
			LastVerified: s.now().UTC(),
			Method:       model.VerificationMethod,
			SourceCount:  sourceCount,
		},
	}
}

func (s *Scorer) relevance(claims []model.Claim) float64 {
	if len(claims) == 0 {
		return s.cfg.NeutralScore
	}

	related := 0
	for _, c := range claims {
		if s.onTopic(c.Text) {
			related++
		}
	}
	return min(1, float64(related)/float64(len(claims))*s.cfg.RelevanceScale)
}

func (s *Scorer) onTopic(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (s *Scorer) suggestions(claims []model.Claim) []string {
	out := []string{}
	for _, c := range claims {
		if c.Confidence < s.cfg.SuggestionThreshold {
			out = append(out, fmt.Sprintf("Verify claim: \"%s\" with additional sources", c.Text))
		}
	}
	return out
}
