package model

import (
	"errors"
	"fmt"
)

// Error classes raised by the research core. Typed errors below wrap one of
// these so callers can match with errors.Is.
var (
	// ErrResolution indicates an institution's domain could not be inferred.
	ErrResolution = errors.New("domain resolution failed")

	// ErrSearch indicates the search API call failed.
	ErrSearch = errors.New("search failed")

	// ErrCrawl indicates a single URL could not be fetched or parsed.
	ErrCrawl = errors.New("crawl failed")

	// ErrVerification indicates claims could not be extracted from a source.
	ErrVerification = errors.New("verification failed")

	// ErrCompletion indicates the model completion call failed.
	ErrCompletion = errors.New("completion failed")
)

// ResolutionError aborts a research run
type ResolutionError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve domain for %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve domain for %q: %s", e.Name, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// SearchError aborts a research run
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

func (e *SearchError) Is(target error) bool { return target == ErrSearch }

// CrawlError is local to one URL; the crawl continues past it
type CrawlError struct {
	URL string
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %v", e.URL, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }

func (e *CrawlError) Is(target error) bool { return target == ErrCrawl }

// VerificationError is returned when claim extraction itself fails
type VerificationError struct {
	URL string
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.URL, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func (e *VerificationError) Is(target error) bool { return target == ErrVerification }

// CompletionError wraps a transport or API failure from an LLM provider
type CompletionError struct {
	Provider string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Provider, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool { return target == ErrCompletion }
