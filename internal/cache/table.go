package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"custos/internal/core"
)

// Lookup results reported to observers.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// FetchFunc produces a raw table on a cache miss.
type FetchFunc func(ctx context.Context) (core.RawTable, error)

// TableCache holds raw tables per source for a validity window. Tables
// handed out are shared between callers and must be treated as read-only.
type TableCache struct {
	entries *LRUCache[core.RawTable]
	group   singleflight.Group

	mu       sync.RWMutex
	observer func(result string)
}

// NewTableCache returns a cache holding up to maxEntries tables for ttl.
func NewTableCache(maxEntries int, ttl time.Duration) *TableCache {
	return &TableCache{entries: NewLRUCache[core.RawTable](maxEntries, ttl)}
}

// Observe registers fn to be told about every hit and miss.
func (c *TableCache) Observe(fn func(result string)) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

func (c *TableCache) report(result string) {
	c.mu.RLock()
	fn := c.observer
	c.mu.RUnlock()
	if fn != nil {
		fn(result)
	}
}

// Get returns the table cached under key or calls fetch to produce it.
// Concurrent misses on one key share a single fetch. Errors are never
// cached.
func (c *TableCache) Get(ctx context.Context, key string, fetch FetchFunc) (core.RawTable, error) {
	if t, ok := c.entries.Get(key); ok {
		c.report(ResultHit)
		return t, nil
	}
	c.report(ResultMiss)

	// The shared fetch must outlive any single caller giving up.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		t, err := fetch(fetchCtx)
		if err != nil {
			return core.RawTable{}, err
		}
		c.entries.Set(key, t)
		return t, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return core.RawTable{}, res.Err
		}
		return res.Val.(core.RawTable), nil
	case <-ctx.Done():
		return core.RawTable{}, ctx.Err()
	}
}

// Invalidate drops the entry for key so the next Get fetches again.
func (c *TableCache) Invalidate(key string) {
	c.entries.Delete(key)
	c.group.Forget(key)
}

// InvalidateAll drops every entry.
func (c *TableCache) InvalidateAll() {
	c.entries.Purge()
}

// CleanExpired implements Cleaner.
func (c *TableCache) CleanExpired() int {
	return c.entries.CleanExpired()
}

// Size returns the number of cached tables.
func (c *TableCache) Size() int {
	return c.entries.Size()
}

// SourceKey builds a cache key for a remote source. The token is hashed so
// credentials never appear in keys, logs or metrics.
func SourceKey(url, token string) string {
	if token == "" {
		return url
	}
	sum := sha256.Sum256([]byte(token))
	return url + "#" + hex.EncodeToString(sum[:8])
}
