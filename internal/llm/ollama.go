package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ppiankov/policyscout/internal/util"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
	llm        llms.Model
	config     Config
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	// Local models can be much slower than hosted APIs
	httpClient := &http.Client{
		Timeout: config.timeout(120 * time.Second),
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(baseURL),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize ollama: %w", err)
	}

	return &OllamaProvider{
		baseURL:    baseURL,
		httpClient: httpClient,
		llm:        llm,
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks if the Ollama server answers its tags endpoint
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		slog.Warn("Ollama availability check failed", "stage", "request", "error", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("Ollama availability check failed", "base_url", p.baseURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Ollama availability check failed", "base_url", p.baseURL, "status", resp.StatusCode)
		return false
	}
	return true
}

// Complete generates text with the local model through langchaingo
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model, maxTokens, system := p.config.resolve(req, p.config.Model)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	resp, err := p.llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(p.config.Temperature),
	)
	if err != nil {
		return nil, completionError(p.Name(), fmt.Errorf("ollama API error: %w", err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, completionError(p.Name(), fmt.Errorf("no response from ollama"))
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Content)

	tokens := tokenCount(choice.GenerationInfo)
	if tokens == 0 {
		// Rough estimate: 1 token is about 4 characters
		tokens = (len(req.Prompt) + len(text)) / 4
	}

	return &CompletionResponse{
		Text:       text,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

func tokenCount(info map[string]any) int {
	if info == nil {
		return 0
	}
	if v, ok := info["TotalTokens"].(int); ok {
		return v
	}
	prompt, _ := info["PromptTokens"].(int)
	completion, _ := info["CompletionTokens"].(int)
	return prompt + completion
}
