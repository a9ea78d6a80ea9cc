package cache

import (
	"errors"
	"time"

	"github.com/ppiankov/policyscout/internal/model"
)

// TieredCache fronts the on-disk completion store with a memory tier. A
// repeat research run over the same institutions reads the disk tier once
// and the memory tier afterwards.
type TieredCache struct {
	hot    *MemoryCache
	cold   Cache
	counts counters
}

// NewTieredCache keeps hot entries for hotTTL and cold ones under dir for coldTTL
func NewTieredCache(hotTTL time.Duration, dir string, coldTTL time.Duration) *TieredCache {
	return &TieredCache{
		hot:  NewMemoryCache(hotTTL, sweepInterval),
		cold: NewDiskCache(dir, coldTTL),
	}
}

// FromConfig returns nil when caching is disabled and a memory-only cache
// when cfg names no directory
func FromConfig(cfg model.CacheConfig) Cache {
	switch {
	case !cfg.Enabled:
		return nil
	case cfg.Dir == "":
		return NewMemoryCache(cfg.MemoryTTL, sweepInterval)
	default:
		return NewTieredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
	}
}

// Get consults the hot tier, then the cold one. A cold hit is copied into
// the hot tier with its default ttl.
func (t *TieredCache) Get(key string) ([]byte, bool) {
	if text, ok := t.hot.Get(key); ok {
		t.counts.hot.Add(1)
		return text, true
	}
	text, ok := t.cold.Get(key)
	if !ok {
		t.counts.miss.Add(1)
		return nil, false
	}
	t.counts.cold.Add(1)
	_ = t.hot.Set(key, text, 0)
	return text, true
}

// Set writes through to both tiers; the disk write is the one that can fail
func (t *TieredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = t.hot.Set(key, value, ttl)
	return t.cold.Set(key, value, ttl)
}

func (t *TieredCache) Delete(key string) error {
	return errors.Join(t.hot.Delete(key), t.cold.Delete(key))
}

func (t *TieredCache) Clear() error {
	return errors.Join(t.hot.Clear(), t.cold.Clear())
}

func (t *TieredCache) Stats() Stats {
	return t.counts.snapshot()
}
