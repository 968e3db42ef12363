package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"gitlab.com/timkado/api/forum-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// Loader produces the authoritative payload for a cache key.
type Loader func(ctx context.Context) ([]byte, error)

// ReadThroughCache serves payloads from a domain.CacheStore and falls back to
// a Loader on miss. Concurrent misses on one key share a single load.
type ReadThroughCache struct {
	store  domain.CacheStore
	logger domain.Logger
	group  singleflight.Group
}

// NewReadThroughCache creates a new ReadThroughCache.
func NewReadThroughCache(store domain.CacheStore, logger domain.Logger) *ReadThroughCache {
	if store == nil {
		panic("cache store cannot be nil in NewReadThroughCache")
	}
	if logger == nil {
		panic("logger cannot be nil in NewReadThroughCache")
	}
	return &ReadThroughCache{store: store, logger: logger}
}

// loadTimeout bounds a shared load once it is detached from its callers.
const loadTimeout = 30 * time.Second

// GetOrLoad returns the cached payload for key, or runs loader and stores its
// result for ttl. A loader failure is returned and nothing is stored. Cache
// store failures are logged and never surface to the caller. A ttl <= 0 means
// the loaded payload is returned without being stored.
//
// A shared load runs detached from the caller that started it, so one caller
// giving up never fails the others waiting on the same key. Each caller stops
// waiting when its own ctx is done.
func (c *ReadThroughCache) GetOrLoad(ctx context.Context, key string, loader Loader, ttl time.Duration) ([]byte, error) {
	if payload, ok := c.lookup(ctx, key); ok {
		return payload, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		// Another flight may have filled the key while this one queued.
		if payload, ok := c.lookup(loadCtx, key); ok {
			return payload, nil
		}

		payload, err := loader(loadCtx)
		if err != nil {
			metrics.IncrementCacheLoadError(key)
			return nil, err
		}
		if ttl <= 0 {
			return payload, nil
		}
		if err := c.store.Set(loadCtx, key, payload, ttl); err != nil {
			c.logger.Warn(loadCtx, "Failed to store loaded payload in cache; serving it uncached",
				"key", key,
				"error", err.Error(),
			)
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		c.logger.Debug(ctx, "Caller stopped waiting for cache load", "key", key, "error", ctx.Err().Error())
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug(ctx, "Cache load shared with a concurrent caller", "key", key)
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate drops keys from the backing store. Failures are logged only.
func (c *ReadThroughCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn(ctx, "Failed to invalidate cache keys", "keys", keys, "error", err.Error())
		return
	}
	c.logger.Debug(ctx, "Cache keys invalidated", "keys", keys)
}

func (c *ReadThroughCache) lookup(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.IncrementCacheLookup(key, "hit")
		c.logger.Debug(ctx, "Cache hit", "key", key)
		return payload, true
	case errors.Is(err, domain.ErrCacheMiss):
		metrics.IncrementCacheLookup(key, "miss")
		c.logger.Debug(ctx, "Cache miss", "key", key)
	default:
		metrics.IncrementCacheLookup(key, "error")
		c.logger.Warn(ctx, "Cache read failed; treating as miss", "key", key, "error", err.Error())
	}
	return nil, false
}

// LoadJSON is GetOrLoad for JSON payloads: load produces a value, which is
// encoded for storage, and the (possibly cached) payload is decoded into T.
func LoadJSON[T any](ctx context.Context, c *ReadThroughCache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var out T
	payload, err := c.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache payload for key '%s': %w", key, err)
		}
		return raw, nil
	}, ttl)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("failed to decode cache payload for key '%s': %w", key, err)
	}
	return out, nil
}
