// internal/imaging/cache.go
package imaging

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// CacheKey identifies a converted logo. Owner and version come from the
// entity that owns the logo; without an owner the reference itself is used.
type CacheKey struct {
	Owner    string
	Version  string
	MaxWidth int
}

// KeyFor builds the cache key for a request
func KeyFor(req LogoRequest) CacheKey {
	owner := req.OwnerID
	if owner == "" {
		owner = "ref:" + req.Ref
	}
	return CacheKey{Owner: owner, Version: req.Version, MaxWidth: req.MaxWidth}
}

// Cache memoizes converted logos in a bounded LRU
type Cache struct {
	entries *lru.Cache[CacheKey, *Bitmap]
	loader  Loader
	logger  *zap.Logger
}

// NewCache wraps loader with an LRU of the given size
func NewCache(size int, loader Loader, logger *zap.Logger) (*Cache, error) {
	if size <= 0 {
		size = 32
	}
	entries, err := lru.New[CacheKey, *Bitmap](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create logo cache: %w", err)
	}
	return &Cache{
		entries: entries,
		loader:  loader,
		logger:  logger.With(zap.String("component", "logo_cache")),
	}, nil
}

// LoadLogo returns the cached bitmap or loads and stores it. Failures are not cached.
func (c *Cache) LoadLogo(ctx context.Context, req LogoRequest) (*Bitmap, error) {
	key := KeyFor(req)
	if bmp, ok := c.entries.Get(key); ok {
		return bmp, nil
	}

	bmp, err := c.loader.LoadLogo(ctx, req)
	if err != nil {
		return nil, err
	}

	if evicted := c.entries.Add(key, bmp); evicted {
		c.logger.Debug("Logo cache evicted an entry", zap.Int("size", c.entries.Len()))
	}
	return bmp, nil
}

// Invalidate drops every entry for owner
func (c *Cache) Invalidate(owner string) int {
	removed := 0
	for _, key := range c.entries.Keys() {
		if key.Owner == owner {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Len reports the number of cached bitmaps
func (c *Cache) Len() int {
	return c.entries.Len()
}
