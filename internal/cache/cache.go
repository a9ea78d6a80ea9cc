package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"
)

// Cache stores model completions keyed by CacheKey
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Stats counts lookups served by a cache. Hits is split by tier so a
// cold start (everything from disk) is distinguishable from a warm run.
type Stats struct {
	HotHits  uint64
	ColdHits uint64
	Misses   uint64
}

// Hits is the total of both tiers
func (s Stats) Hits() uint64 {
	return s.HotHits + s.ColdHits
}

// StatsReporter is implemented by caches that count their lookups
type StatsReporter interface {
	Stats() Stats
}

type counters struct {
	hot, cold, miss atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{HotHits: c.hot.Load(), ColdHits: c.cold.Load(), Misses: c.miss.Load()}
}

// CacheKey hashes parts into a versioned key. Parts are NUL-separated so
// ("ab","c") and ("a","bc") differ.
func CacheKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "policyscout:v1:" + hex.EncodeToString(hash[:])
}
