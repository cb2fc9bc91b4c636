package redis

import (
	"context"
	"time"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

// AdvisoryCache stores model-authored advice by summary key. Canned advice
// is never stored here.
type AdvisoryCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAdvisoryCache creates an AdvisoryCache. A non-positive ttl uses
// TTLAdvisory.
func NewAdvisoryCache(cache *Cache, ttl time.Duration) *AdvisoryCache {
	if ttl <= 0 {
		ttl = TTLAdvisory
	}
	return &AdvisoryCache{cache: cache, ttl: ttl}
}

// Get returns cached advice or ErrCacheMiss. Entries that no longer
// validate count as misses.
func (c *AdvisoryCache) Get(ctx context.Context, key string) (growth.Advice, error) {
	var a growth.Advice
	if err := c.cache.Get(ctx, PrefixAdvisory+key, &a); err != nil {
		return growth.Advice{}, err
	}
	if a.Validate() != nil {
		return growth.Advice{}, ErrCacheMiss
	}
	return a, nil
}

// Put stores advice under key.
func (c *AdvisoryCache) Put(ctx context.Context, key string, a growth.Advice) error {
	return c.cache.Set(ctx, PrefixAdvisory+key, a, c.ttl)
}
