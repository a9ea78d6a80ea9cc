package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider answers prompts from canned responses. Responses are matched
// by substring in insertion order; Fallback is used when nothing matches.
type MockProvider struct {
	mu        sync.Mutex
	rules     []mockRule
	Fallback  string
	Err       error
	Available bool
	Calls     []CompletionRequest
}

type mockRule struct {
	contains string
	text     string
	err      error
}

// NewMockProvider creates an available mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{Available: true}
}

// On registers a response for prompts containing substr
func (m *MockProvider) On(substr, text string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, text: text})
	return m
}

// FailOn registers an error for prompts containing substr
func (m *MockProvider) FailOn(substr string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, err: err})
	return m
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable reports the configured availability
func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.Available
}

// Complete returns the first matching canned response
func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)

	if m.Err != nil {
		return nil, completionError(m.Name(), m.Err)
	}

	for _, r := range m.rules {
		if !strings.Contains(req.Prompt, r.contains) {
			continue
		}
		if r.err != nil {
			return nil, completionError(m.Name(), r.err)
		}
		return &CompletionResponse{Text: r.text, Model: "mock"}, nil
	}

	if m.Fallback == "" {
		return nil, completionError(m.Name(), fmt.Errorf("no canned response for prompt"))
	}
	return &CompletionResponse{Text: m.Fallback, Model: "mock"}, nil
}

// CallCount returns how many completions were requested
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
