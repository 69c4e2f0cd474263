package sheets

import (
	"context"

	"custos/internal/cache"
	"custos/internal/core"
)

// Ports for outbound adapters.
type (
	// RawTableLoader produces the untyped cost sheet.
	RawTableLoader interface {
		Load(ctx context.Context) (core.RawTable, error)
	}

	// Source is a loader that can name what it reads, for cache keys and
	// load history. Keys never contain credentials.
	Source interface {
		RawTableLoader
		SourceKey() string
	}
)

// Cached serves a Source through a TableCache.
type Cached struct {
	src   Source
	cache *cache.TableCache
}

var _ Source = (*Cached)(nil)

// NewCached decorates src with c.
func NewCached(src Source, c *cache.TableCache) *Cached {
	return &Cached{src: src, cache: c}
}

// Load returns the cached table for the source or fetches it.
func (c *Cached) Load(ctx context.Context) (core.RawTable, error) {
	return c.cache.Get(ctx, c.src.SourceKey(), c.src.Load)
}

// SourceKey returns the key of the wrapped source.
func (c *Cached) SourceKey() string {
	return c.src.SourceKey()
}

// Invalidate forces the next Load to fetch again.
func (c *Cached) Invalidate() {
	c.cache.Invalidate(c.src.SourceKey())
}
