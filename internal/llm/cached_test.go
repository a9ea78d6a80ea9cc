package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/policyscout/internal/cache"
)

func TestCachedProvider_ReusesCompletion(t *testing.T) {
	mock := NewMockProvider()
	mock.Fallback = "cached answer"
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		text, err := Text(context.Background(), p, "same prompt", 100)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if text != "cached answer" {
			t.Errorf("got %q, want cached answer", text)
		}
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 upstream call, got %d", mock.CallCount())
	}
	if s := p.Stats(); s.Hits() != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits and 1 miss", s)
	}
}

func TestCachedProvider_KeyIncludesMaxTokens(t *testing.T) {
	mock := NewMockProvider()
	mock.Fallback = "x"
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	_, _ = Text(context.Background(), p, "prompt", 100)
	_, _ = Text(context.Background(), p, "prompt", 200)

	if mock.CallCount() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", mock.CallCount())
	}
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	mock := NewMockProvider()
	mock.Err = errors.New("unavailable")
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	if _, err := Text(context.Background(), p, "prompt", 0); err == nil {
		t.Fatal("expected error")
	}

	mock.Err = nil
	mock.Fallback = "recovered"
	text, err := Text(context.Background(), p, "prompt", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" {
		t.Errorf("got %q, want recovered", text)
	}
}

func TestCachedProvider_Delegates(t *testing.T) {
	mock := NewMockProvider()
	mock.Available = false
	p := NewCachedProvider(mock, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	if p.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", p.Name())
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected IsAvailable to delegate")
	}
}
