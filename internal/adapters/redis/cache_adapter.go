package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/forum-service/internal/domain"
	"gitlab.com/timkado/api/forum-service/pkg/rediskeys"
)

// CacheAdapter implements the domain.CacheStore interface using Redis.
// Expiry is left to Redis TTLs.
type CacheAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewCacheAdapter creates a new instance of CacheAdapter.
func NewCacheAdapter(redisClient *redis.Client, logger domain.Logger) *CacheAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewCacheAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCacheAdapter")
	}
	return &CacheAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get retrieves a cached payload.
func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	redisKey := rediskeys.CacheKey(key)
	val, err := a.redisClient.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Redis cache miss", "key", redisKey)
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get payload from Redis cache", "key", redisKey, "error", err.Error())
		return nil, fmt.Errorf("redis GET for cache key '%s' failed: %w", redisKey, err)
	}
	a.logger.Debug(ctx, "Redis cache hit", "key", redisKey, "bytes", len(val))
	return val, nil
}

// Set stores a payload with a TTL.
func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	redisKey := rediskeys.CacheKey(key)
	if err := a.redisClient.Set(ctx, redisKey, value, ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set payload in Redis cache", "key", redisKey, "error", err.Error())
		return fmt.Errorf("redis SET for cache key '%s' failed: %w", redisKey, err)
	}
	a.logger.Debug(ctx, "Successfully cached payload", "key", redisKey, "ttl", ttl.String())
	return nil
}

// Delete removes cached payloads.
func (a *CacheAdapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = rediskeys.CacheKey(k)
	}
	if err := a.redisClient.Del(ctx, redisKeys...).Err(); err != nil {
		a.logger.Error(ctx, "Failed to delete Redis cache keys", "keys", redisKeys, "error", err.Error())
		return fmt.Errorf("redis DEL for cache keys %v failed: %w", redisKeys, err)
	}
	return nil
}
