package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// sweepInterval is how often go-cache purges expired completions
const sweepInterval = 10 * time.Minute

// MemoryCache keeps completions for the life of the process. It is the hot
// tier of TieredCache and the whole cache when no directory is configured.
type MemoryCache struct {
	entries *gocache.Cache
	counts  counters
}

// NewMemoryCache returns an empty cache whose entries live for ttl unless
// Set is given its own
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, sweep)}
}

func (m *MemoryCache) Get(key string) ([]byte, bool) {
	if v, found := m.entries.Get(key); found {
		if text, ok := v.([]byte); ok {
			m.counts.hot.Add(1)
			return text, true
		}
	}
	m.counts.miss.Add(1)
	return nil, false
}

// Set stores a completion. ttl <= 0 falls back to the cache-wide ttl.
func (m *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.entries.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.entries.Delete(key)
	return nil
}

func (m *MemoryCache) Clear() error {
	m.entries.Flush()
	return nil
}

// Len reports how many unexpired completions are held
func (m *MemoryCache) Len() int {
	return m.entries.ItemCount()
}

func (m *MemoryCache) Stats() Stats {
	return m.counts.snapshot()
}
