package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete PolicyScout configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Crawl        CrawlConfig        `yaml:"crawl" mapstructure:"crawl"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Verify       VerifyConfig       `yaml:"verify" mapstructure:"verify"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Research     ResearchConfig     `yaml:"research" mapstructure:"research"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
}

// LLMConfig selects and tunes the completion provider
type LLMConfig struct {
	Provider         string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model            string        `yaml:"model" mapstructure:"model"`
	APIKey           string        `yaml:"-" mapstructure:"api_key"` // never written to disk
	BaseURL          string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens        int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	ResolveMaxTokens int           `yaml:"resolve_max_tokens" mapstructure:"resolve_max_tokens"`
	Temperature      float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig configures the web search capability
type SearchConfig struct {
	APIKey  string        `yaml:"-" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Count   int           `yaml:"count" mapstructure:"count"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HTTPConfig configures page fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CrawlConfig bounds a single crawl
type CrawlConfig struct {
	MaxPages      int  `yaml:"max_pages" mapstructure:"max_pages"`
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// AnalysisConfig bounds document analysis
type AnalysisConfig struct {
	MaxContentChars int `yaml:"max_content_chars" mapstructure:"max_content_chars"`
}

// VerifyConfig bounds claim verification
type VerifyConfig struct {
	MaxContentChars int `yaml:"max_content_chars" mapstructure:"max_content_chars"`
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ReputationRule assigns a reputation score to URLs containing Pattern
type ReputationRule struct {
	Pattern string  `yaml:"pattern" mapstructure:"pattern"`
	Score   float64 `yaml:"score" mapstructure:"score"`
}

// ScoringConfig holds the cross-referencing heuristics. Change the defaults
// only through configuration.
type ScoringConfig struct {
	ConfidenceWeight    float64          `yaml:"confidence_weight" mapstructure:"confidence_weight"`
	DomainWeight        float64          `yaml:"domain_weight" mapstructure:"domain_weight"`
	RelevanceScale      float64          `yaml:"relevance_scale" mapstructure:"relevance_scale"`
	SuggestionThreshold float64          `yaml:"suggestion_threshold" mapstructure:"suggestion_threshold"`
	NeutralScore        float64          `yaml:"neutral_score" mapstructure:"neutral_score"`
	DefaultReputation   float64          `yaml:"default_reputation" mapstructure:"default_reputation"`
	Reputation          []ReputationRule `yaml:"reputation" mapstructure:"reputation"`
	RelevanceKeywords   []string         `yaml:"relevance_keywords" mapstructure:"relevance_keywords"`
}

// DefaultScoringConfig returns the standard weights
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		ConfidenceWeight:    0.7,
		DomainWeight:        0.3,
		RelevanceScale:      1.2,
		SuggestionThreshold: 0.7,
		NeutralScore:        0.5,
		DefaultReputation:   0.5,
		Reputation: []ReputationRule{
			{Pattern: ".edu", Score: 0.9},
			{Pattern: ".gov", Score: 0.9},
			{Pattern: ".org", Score: 0.7},
		},
		RelevanceKeywords: []string{"ai", "artificial intelligence", "policy"},
	}
}

// ResearchConfig tunes the orchestrator
type ResearchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ScheduleConfig configures the recurring refresh
type ScheduleConfig struct {
	Cron           string `yaml:"cron" mapstructure:"cron"`
	PersistResults bool   `yaml:"persist_results" mapstructure:"persist_results"`
}

// CacheConfig configures the completion cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig locates the sqlite database
type StoreConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RateLimitingConfig throttles page fetches per host
type RateLimitingConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".policyscout")

	return &Config{
		LLM: LLMConfig{
			Provider:         "openai",
			Model:            "gpt-4o-mini",
			MaxTokens:        2000,
			ResolveMaxTokens: 100,
			Temperature:      0.3,
			Timeout:          60 * time.Second,
		},
		Search: SearchConfig{
			Count:   30,
			Timeout: 15 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      20 * time.Second,
			UserAgent:    "PolicyScout/0.1 (+https://github.com/ppiankov/policyscout)",
			MaxBodyBytes: 2_000_000,
		},
		Crawl: CrawlConfig{
			MaxPages:      10,
			RespectRobots: true,
		},
		Analysis: AnalysisConfig{
			MaxContentChars: 3000,
		},
		Verify: VerifyConfig{
			MaxContentChars: 2000,
			Concurrency:     1,
		},
		Scoring: DefaultScoringConfig(),
		Research: ResearchConfig{
			Concurrency: 1,
		},
		Schedule: ScheduleConfig{
			Cron: "0 2 * * *",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
			Dir:       filepath.Join(base, "cache"),
		},
		Store: StoreConfig{
			Dir: filepath.Join(base, "data"),
		},
		RateLimiting: RateLimitingConfig{
			Enabled:           true,
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
	}
}
