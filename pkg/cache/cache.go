// Package cache serves repeated queries without re-dispatching them.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zen-systems/unigate/pkg/schema"
)

// DefaultTTLs is the per-category TTL table. Conversational answers are
// context-sensitive and never cached; retrieval and automation answers
// get a short TTL because the underlying knowledge may change.
func DefaultTTLs() map[schema.TaskCategory]time.Duration {
	return map[schema.TaskCategory]time.Duration{
		schema.CategoryConversational: 0,
		schema.CategoryRetrieval:      5 * time.Minute,
		schema.CategoryAutomation:     5 * time.Minute,
		schema.CategoryVisualFlow:     5 * time.Minute,
		schema.CategoryUnknown:        time.Minute,
	}
}

// ComputeFunc produces a fresh response on a cache miss.
type ComputeFunc func(ctx context.Context) (*schema.UnifiedResponse, error)

// Cache wraps a Store with per-category TTLs and singleflight collapse:
// concurrent identical misses share one in-flight computation.
type Cache struct {
	store Store
	ttls  map[schema.TaskCategory]time.Duration
	group singleflight.Group
}

// New creates a cache over the given store. A nil ttls map uses DefaultTTLs.
func New(store Store, ttls map[schema.TaskCategory]time.Duration) *Cache {
	if ttls == nil {
		ttls = DefaultTTLs()
	}
	return &Cache{store: store, ttls: ttls}
}

// TTL returns the configured TTL for a category.
func (c *Cache) TTL(category schema.TaskCategory) time.Duration {
	return c.ttls[category]
}

// GetOrCompute returns the cached response for key, or collapses
// concurrent misses into one compute call and stores its result.
// The returned bool reports whether the response came from the cache.
//
// A zero TTL category bypasses the cache and singleflight entirely.
// The in-flight computation runs on a context detached from the
// caller's: a caller whose deadline expires gets DeadlineExceeded, but
// the flight finishes and other waiters still benefit.
func (c *Cache) GetOrCompute(ctx context.Context, key string, category schema.TaskCategory, compute ComputeFunc) (*schema.UnifiedResponse, bool, error) {
	ttl := c.ttls[category]
	if ttl <= 0 {
		resp, err := compute(ctx)
		return resp, false, err
	}

	if resp, ok := c.store.Get(ctx, key); ok {
		hit := *resp
		hit.Cached = true
		return &hit, true, nil
	}

	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		resp, err := compute(flight)
		if err != nil {
			return nil, err
		}
		c.store.Put(flight, key, resp, ttl)
		return resp, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		resp := res.Val.(*schema.UnifiedResponse)
		if res.Shared {
			shared := *resp
			shared.Cached = true
			return &shared, true, nil
		}
		return resp, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// RunSweeper evicts expired entries at the given interval until ctx is
// cancelled.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.store.Sweep(ctx)
		}
	}
}
