package model

import "strings"

// SearchResult is a single hit from the search capability (transient)
type SearchResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DocumentType is inferred from URL substrings during a crawl
type DocumentType string

const (
	DocPolicy  DocumentType = "policy"
	DocNews    DocumentType = "news"
	DocAbout   DocumentType = "about"
	DocUnknown DocumentType = "unknown"
)

// InferDocumentType classifies a page by its URL
func InferDocumentType(rawURL string) DocumentType {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "policy"), strings.Contains(lower, "policies"):
		return DocPolicy
	case strings.Contains(lower, "news"), strings.Contains(lower, "press"):
		return DocNews
	case strings.Contains(lower, "about"):
		return DocAbout
	default:
		return DocUnknown
	}
}

// DocumentMeta holds page-level metadata
type DocumentMeta struct {
	LastModified string       `json:"last_modified,omitempty"`
	Author       string       `json:"author,omitempty"`
	Type         DocumentType `json:"type"`
}

// ScrapedDocument is one fetched and parsed page (transient)
type ScrapedDocument struct {
	URL      string       `json:"url"`
	Title    string       `json:"title"`
	Content  string       `json:"content"`
	Links    []string     `json:"links,omitempty"`
	Metadata DocumentMeta `json:"metadata"`
}

// PolicyAnalysis is the structured breakdown extracted from model output
type PolicyAnalysis struct {
	Category string
	Title    string
	Status   PolicyStatus
	Summary  string
}

// Analysis defaults used when a label is missing from model output
const (
	DefaultCategory = "unknown"
	DefaultTitle    = "Untitled Policy"
)

// DefaultAnalysis returns the fully degraded analysis
func DefaultAnalysis() PolicyAnalysis {
	return PolicyAnalysis{
		Category: DefaultCategory,
		Title:    DefaultTitle,
		Status:   StatusUnknown,
		Summary:  "",
	}
}
