package model

import (
	"strings"
	"time"
)

// Institution is a university or similar organization being researched.
// Persistence belongs to the caller; the core only reads and writes it
// through the orchestrator's inputs and outputs.
type Institution struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain,omitempty"`
	Website     string    `json:"website,omitempty"`
	Country     string    `json:"country,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// PolicyStatus is the lifecycle state of a published policy
type PolicyStatus string

const (
	StatusActive   PolicyStatus = "active"
	StatusDraft    PolicyStatus = "draft"
	StatusArchived PolicyStatus = "archived"
	StatusUnknown  PolicyStatus = "unknown"
)

// NormalizeStatus maps free model output onto the status enum.
// Anything outside the enum becomes StatusUnknown.
func NormalizeStatus(s string) PolicyStatus {
	switch PolicyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusDraft:
		return StatusDraft
	case StatusArchived:
		return StatusArchived
	default:
		return StatusUnknown
	}
}

// PolicyRecord is one extracted policy. The owning Institution is assigned
// by the caller after the research run returns.
type PolicyRecord struct {
	Category           string       `json:"category"`
	Title              string       `json:"title"`
	Content            string       `json:"content"`
	Status             PolicyStatus `json:"status"`
	Summary            string       `json:"summary,omitempty"`
	ImplementationDate *time.Time   `json:"implementation_date,omitempty"`
	LastUpdated        time.Time    `json:"last_updated"`
}

// SourceType classifies where a SourceRecord came from
type SourceType string

const (
	SourceWebpage          SourceType = "webpage"
	SourceOfficialDocument SourceType = "official_document"
	SourceNewsArticle      SourceType = "news_article"
	SourcePressRelease     SourceType = "press_release"
)

// SourceMetadata carries descriptive data about a source
type SourceMetadata struct {
	Description  string `json:"description"`
	DocumentType string `json:"document_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Author       string `json:"author,omitempty"`
}

// SourceRecord is a retrieved page backing a PolicyRecord
type SourceRecord struct {
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Type          SourceType     `json:"type"`
	RetrievalDate time.Time      `json:"retrieval_date"`
	Content       string         `json:"content,omitempty"`
	Metadata      SourceMetadata `json:"metadata"`
}

// ResearchResult is the output of one research run.
// Policies[i] and Sources[i] were produced from the same document.
type ResearchResult struct {
	Summary  string         `json:"summary"`
	Policies []PolicyRecord `json:"policies"`
	Sources  []SourceRecord `json:"sources"`
}
