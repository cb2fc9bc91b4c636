package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/pkg/logger"
)

// AdvisoryStore is the shared second-level cache, e.g. redis.AdvisoryCache.
// Any Get error is treated as a miss.
type AdvisoryStore interface {
	Get(ctx context.Context, key string) (growth.Advice, error)
	Put(ctx context.Context, key string, a growth.Advice) error
}

// Cache lookup outcomes reported to the observer.
const (
	CacheHitLocal  = "local"
	CacheHitShared = "shared"
	CacheMiss      = "miss"
)

// CachedGeneratorConfig configures a CachedGenerator.
type CachedGeneratorConfig struct {
	// Namespace separates keys of different backends and prompt versions.
	Namespace string

	LocalSize int
	TTL       time.Duration

	// CallTimeout bounds a shared backend call. The call is detached from
	// the caller that started it, so one caller leaving early does not fail
	// the others waiting on the same summary.
	CallTimeout time.Duration

	// Store is optional.
	Store AdvisoryStore

	// Observe is called with one of the CacheHit*/CacheMiss outcomes.
	Observe func(outcome string)

	Logger *logger.Logger
}

// CachedGenerator reuses model advice for identical summaries. Lookups go
// through an in-process LRU, then the shared store. Concurrent misses for the
// same summary share one backend call. Only validated model advice is cached.
type CachedGenerator struct {
	next      growth.Generator
	namespace string
	local     *expirable.LRU[string, growth.Advice]
	store     AdvisoryStore
	group     singleflight.Group
	timeout   time.Duration
	observe   func(string)
	log       *logger.Logger
}

// NewCachedGenerator wraps next with caching.
func NewCachedGenerator(next growth.Generator, cfg CachedGeneratorConfig) *CachedGenerator {
	if cfg.LocalSize <= 0 {
		cfg.LocalSize = 512
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.Observe == nil {
		cfg.Observe = func(string) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &CachedGenerator{
		next:      next,
		namespace: cfg.Namespace,
		local:     expirable.NewLRU[string, growth.Advice](cfg.LocalSize, nil, cfg.TTL),
		store:     cfg.Store,
		timeout:   cfg.CallTimeout,
		observe:   cfg.Observe,
		log:       cfg.Logger.With(logger.Component("cached_generator")),
	}
}

// SummaryKey derives the cache key for a summary: hex BLAKE2b-256 of the
// namespace and the JSON summary.
func SummaryKey(namespace string, s growth.Summary) string {
	body, _ := json.Marshal(struct {
		Namespace string         `json:"ns"`
		Summary   growth.Summary `json:"summary"`
	}{namespace, s})

	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Generate implements growth.Generator.
func (c *CachedGenerator) Generate(ctx context.Context, s growth.Summary) (growth.Advice, error) {
	key := SummaryKey(c.namespace, s)

	if advice, ok := c.local.Get(key); ok {
		c.observe(CacheHitLocal)
		return advice, nil
	}

	if c.store != nil {
		if advice, err := c.store.Get(ctx, key); err == nil {
			c.local.Add(key, advice)
			c.observe(CacheHitShared)
			return advice, nil
		}
	}

	c.observe(CacheMiss)

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		advice, err := c.next.Generate(callCtx, s)
		if err != nil {
			return nil, err
		}
		if err := advice.Validate(); err != nil {
			return nil, err
		}
		c.remember(callCtx, key, advice)
		return advice, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return growth.Advice{}, res.Err
		}
		return res.Val.(growth.Advice), nil
	case <-ctx.Done():
		return growth.Advice{}, ctx.Err()
	}
}

func (c *CachedGenerator) remember(ctx context.Context, key string, advice growth.Advice) {
	c.local.Add(key, advice)
	if c.store == nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := c.store.Put(storeCtx, key, advice); err != nil {
		c.log.Warn("failed to store advice", logger.Err(err))
	}
}

// Len returns the number of locally cached entries.
func (c *CachedGenerator) Len() int {
	return c.local.Len()
}
