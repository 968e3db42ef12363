package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	"gitlab.com/timkado/api/forum-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

const lockBackendRedis = "redis"

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// ItemLockAdapter implements domain.LeaseLocker with Redis SETNX so that
// toggles on one item are serialized across replicas. Each holder writes a
// random token and only that token can release the lock. The TTL bounds how
// long a crashed holder can block the item.
type ItemLockAdapter struct {
	redisClient *redis.Client
	cfgProvider config.Provider
	logger      domain.Logger
}

// NewItemLockAdapter creates a new instance of ItemLockAdapter.
func NewItemLockAdapter(redisClient *redis.Client, cfgProvider config.Provider, logger domain.Logger) *ItemLockAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewItemLockAdapter")
	}
	if cfgProvider == nil {
		panic("config provider cannot be nil in NewItemLockAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewItemLockAdapter")
	}
	return &ItemLockAdapter{redisClient: redisClient, cfgProvider: cfgProvider, logger: logger}
}

// Lock retries SETNX with a doubling delay until it wins, the retries run
// out or ctx is done.
func (a *ItemLockAdapter) Lock(ctx context.Context, key string) (func(), error) {
	release, _, err := a.acquire(ctx, key)
	return release, err
}

// Lease is Lock plus a context that ends at 80% of the lock TTL, measured from
// acquisition. Releasing the lock also ends the lease.
func (a *ItemLockAdapter) Lease(ctx context.Context, key string) (context.Context, func(), error) {
	release, ttl, err := a.acquire(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	leaseCtx, cancel := context.WithTimeout(ctx, ttl*4/5)
	return leaseCtx, func() {
		cancel()
		release()
	}, nil
}

func (a *ItemLockAdapter) acquire(ctx context.Context, key string) (func(), time.Duration, error) {
	cfg := a.cfgProvider.Get().Vote
	ttl := time.Duration(cfg.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	delay := time.Duration(cfg.LockRetryDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	maxDelay := time.Duration(cfg.LockMaxRetryDelayMs) * time.Millisecond
	if maxDelay < delay {
		maxDelay = delay
	}
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		acquired, err := a.redisClient.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			metrics.IncrementItemLockAttempt(lockBackendRedis, "error")
			a.logger.Error(ctx, "Redis SETNX failed", "key", key, "error", err.Error())
			return nil, 0, fmt.Errorf("%w: redis SETNX for key '%s' failed: %w", domain.ErrInternal, key, err)
		}
		if acquired {
			metrics.IncrementItemLockAttempt(lockBackendRedis, "acquired")
			a.logger.Debug(ctx, "Item lock acquired", "key", key, "attempt", attempt)
			return a.releaser(ctx, key, token), ttl, nil
		}
		if attempt >= cfg.LockMaxRetries {
			metrics.IncrementItemLockAttempt(lockBackendRedis, "exhausted")
			a.logger.Warn(ctx, "Could not acquire item lock", "key", key, "attempts", attempt+1)
			return nil, 0, fmt.Errorf("%w: could not acquire item lock '%s' after %d attempts", domain.ErrInternal, key, attempt+1)
		}

		a.logger.Debug(ctx, "Item lock busy, retrying", "key", key, "attempt", attempt, "delay", delay.String())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			metrics.IncrementItemLockAttempt(lockBackendRedis, "cancelled")
			return nil, 0, fmt.Errorf("%w: waiting for item lock '%s': %w", domain.ErrInternal, key, ctx.Err())
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (a *ItemLockAdapter) releaser(ctx context.Context, key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { a.release(ctx, key, token) })
	}
}

func (a *ItemLockAdapter) release(ctx context.Context, key, token string) {
	// The request context may already be done; the lock must still go.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	result, err := releaseScript.Run(releaseCtx, a.redisClient, []string{key}, token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		a.logger.Error(ctx, "Redis EVAL (release item lock) failed", "key", key, "error", err.Error())
		return
	}
	if result != 1 {
		a.logger.Warn(ctx, "Item lock expired before release", "key", key)
	}
}
