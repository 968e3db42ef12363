package domain

import (
	"context"
	"time"
)

// CacheStore is a byte-oriented key/value store with per-entry TTL.
// The read-through cache in the application layer is its only caller.
type CacheStore interface {
	// Get returns the payload stored under key, or ErrCacheMiss if the key is
	// absent or its TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl. The whole payload becomes visible at once.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// Cache keys live here so they do not spread across the code base.
const CacheKeyUsers = "users"
