package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/policyscout/internal/util"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	anthropicAPIVersion   = "2023-06-01"
)

// AnthropicProvider sends policy prompts to the Messages API over plain HTTP
type AnthropicProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	config   Config
}

// messagesRequest is a single-turn Messages call. The policy prompt is the
// only user turn; the analyst instructions travel as the system prompt.
type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []messageTurn `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type messageTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins the text blocks of the reply; other block types are ignored
func (r *messagesResponse) text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// messagesError is a non-200 reply from the Messages API
type messagesError struct {
	Status int
	Kind   string
	Detail string
}

func (e *messagesError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("anthropic status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("anthropic status %d: %s: %s", e.Status, e.Kind, e.Detail)
}

func decodeMessagesError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return &messagesError{Status: status, Kind: envelope.Error.Type, Detail: envelope.Error.Message}
	}
	return &messagesError{Status: status, Detail: strings.TrimSpace(string(body))}
}

// NewAnthropicProvider fails without an API key
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required (set ANTHROPIC_API_KEY)")
	}

	base := strings.TrimSuffix(config.BaseURL, "/")
	if base == "" {
		base = "https://api.anthropic.com"
	}

	transport := &http.Transport{
		Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}
	return &AnthropicProvider{
		apiKey:   config.APIKey,
		endpoint: base + "/v1/messages",
		client:   &http.Client{Timeout: config.timeout(60 * time.Second), Transport: transport},
		config:   config,
	}, nil
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// IsAvailable spends a ten-token call to confirm the key is accepted
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.send(ctx, messagesRequest{
		Model:     defaultAnthropicModel,
		MaxTokens: 10,
		Messages:  []messageTurn{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		slog.Warn("anthropic unavailable", "error", err)
		return false
	}
	return true
}

// Complete asks the model about one policy prompt. A reply without text
// blocks is an error so callers never score an empty analysis.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	modelName, maxTokens, system := p.config.resolve(req, defaultAnthropicModel)

	resp, err := p.send(ctx, messagesRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    []messageTurn{{Role: "user", Content: req.Prompt}},
		Temperature: p.config.Temperature,
	})
	if err != nil {
		return nil, completionError(p.Name(), err)
	}

	text := resp.text()
	if text == "" {
		return nil, completionError(p.Name(), fmt.Errorf("reply from %s carried no text", resp.Model))
	}
	return &CompletionResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

func (p *AnthropicProvider) send(ctx context.Context, body messagesRequest) (*messagesResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding messages request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", p.endpoint, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading messages reply: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, decodeMessagesError(httpResp.StatusCode, raw)
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding messages reply: %w", err)
	}
	return &out, nil
}
