package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

// AssessmentCache keeps the latest assessment per infant so risk status
// reads skip PostgreSQL.
type AssessmentCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAssessmentCache creates an AssessmentCache. A non-positive ttl uses
// TTLLatestAssessment.
func NewAssessmentCache(cache *Cache, ttl time.Duration) *AssessmentCache {
	if ttl <= 0 {
		ttl = TTLLatestAssessment
	}
	return &AssessmentCache{cache: cache, ttl: ttl}
}

// AssessmentKey is the cache key for an infant's latest assessment.
func AssessmentKey(infantID string) string {
	return PrefixAssessment + infantID
}

// GetLatest returns the cached assessment or ErrCacheMiss.
func (c *AssessmentCache) GetLatest(ctx context.Context, infantID string) (*growth.Assessment, error) {
	var a growth.Assessment
	if err := c.cache.Get(ctx, AssessmentKey(infantID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// PutLatest stores the assessment as the infant's latest.
func (c *AssessmentCache) PutLatest(ctx context.Context, a *growth.Assessment) error {
	if a == nil || a.InfantID == "" {
		return ErrCacheKeyEmpty
	}
	if err := c.cache.Set(ctx, AssessmentKey(a.InfantID), a, c.ttl); err != nil {
		return fmt.Errorf("cache latest assessment: %w", err)
	}
	return nil
}

// Invalidate drops the cached assessment.
func (c *AssessmentCache) Invalidate(ctx context.Context, infantID string) error {
	return c.cache.Delete(ctx, AssessmentKey(infantID))
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
