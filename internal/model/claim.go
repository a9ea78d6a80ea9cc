package model

import (
	"math"
	"time"
)

// Claim is a single assertion extracted from a source, with its own score
type Claim struct {
	Text              string   `json:"claim"`
	Confidence        float64  `json:"confidence"`         // 0.0-1.0
	SupportingSources []string `json:"supporting_sources"` // lines from the verifier that cite URLs
}

// VerificationMeta records how a cross-reference was produced
type VerificationMeta struct {
	LastVerified time.Time `json:"last_verified"`
	Method       string    `json:"verification_method"`
	SourceCount  int       `json:"source_count"` // supporting sources summed across claims
}

// CrossReferenceResult is the reliability assessment of one source
type CrossReferenceResult struct {
	Reliability      float64          `json:"reliability"`
	Relevance        float64          `json:"relevance"`
	Confidence       float64          `json:"confidence"`
	VerifiedClaims   []Claim          `json:"verified_facts"`
	SuggestedUpdates []string         `json:"suggested_updates"`
	Metadata         VerificationMeta `json:"metadata"`
}

// VerificationMethod labels results produced by the claim verifier
const VerificationMethod = "multi-source-validation"

// Clamp01 bounds v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
