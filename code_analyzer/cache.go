package code_analyzer

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
)

// DefaultCacheSize bounds the number of cached scan results.
const DefaultCacheSize = 256

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits   int64
	Misses int64
}

// CachedScanner memoizes scan results keyed by a hash of scanner, language and text.
type CachedScanner struct {
	inner SymbolScanner
	cache *lru.Cache[uint64, []Symbol]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedScanner wraps inner with an LRU of the given size.
func NewCachedScanner(inner SymbolScanner, size int) (*CachedScanner, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[uint64, []Symbol](size)
	if err != nil {
		return nil, err
	}
	return &CachedScanner{inner: inner, cache: cache}, nil
}

func (c *CachedScanner) Name() string { return c.inner.Name() }

// Scan returns the cached symbols for identical input, scanning on a miss.
func (c *CachedScanner) Scan(ctx context.Context, language string, text string) ([]Symbol, error) {
	key := generateCacheKey(c.inner.Name(), language, text)
	if symbols, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return symbols, nil
	}
	c.misses.Add(1)

	symbols, err := c.inner.Scan(ctx, language, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, symbols)
	return symbols, nil
}

// Purge drops every cached result.
func (c *CachedScanner) Purge() {
	c.cache.Purge()
}

// Stats returns hit and miss counters.
func (c *CachedScanner) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// generateCacheKey creates a unique cache key for a scan
func generateCacheKey(scanner string, language string, text string) uint64 {
	return xxh3.HashString(scanner + "\x00" + language + "\x00" + text)
}
