package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/policyscout/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single prompt and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input for one model call
type CompletionRequest struct {
	// Prompt is the user message
	Prompt string

	// System is an optional system instruction (if empty, use default)
	System string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout bounds every API request
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultSystemPrompt frames every research call
const DefaultSystemPrompt = "You are a research assistant that analyzes university AI policies. Answer concisely and follow the requested output format exactly."

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60 * time.Second,
		MaxTokens:   2000,
		Temperature: 0.3,
	}
}

// resolve fills request fields left empty from the provider config
func (c Config) resolve(req CompletionRequest, defaultModel string) (model string, maxTokens int, system string) {
	model = req.Model
	if model == "" {
		model = c.Model
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 2000
	}

	system = req.System
	if system == "" {
		system = DefaultSystemPrompt
	}
	return model, maxTokens, system
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

// Text is a convenience wrapper that returns only the completion text
func Text(ctx context.Context, p Provider, prompt string, maxTokens int) (string, error) {
	resp, err := p.Complete(ctx, CompletionRequest{Prompt: prompt, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// completionError tags err with the provider name
func completionError(provider string, err error) error {
	return &model.CompletionError{Provider: provider, Err: err}
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Lines splits model output into trimmed, non-empty lines
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
