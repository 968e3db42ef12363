package memory

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// expired reports whether the entry is no longer served at now.
func (e cacheEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// CacheStore is an in-process domain.CacheStore. Expired entries are dropped
// lazily on read.
type CacheStore struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCacheStore creates a CacheStore. A nil clock defaults to time.Now.
func NewCacheStore(clock func() time.Time) *CacheStore {
	if clock == nil {
		clock = time.Now
	}
	return &CacheStore{entries: make(map[string]cacheEntry), now: clock}
}

// Get implements domain.CacheStore.
func (s *CacheStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, domain.ErrCacheMiss
	}
	return append([]byte(nil), e.payload...), nil
}

// Set implements domain.CacheStore.
func (s *CacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete implements domain.CacheStore.
func (s *CacheStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
