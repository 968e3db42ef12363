package application

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/timkado/api/forum-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

const lockBackendLocal = "local"

// keyedLock is one slot of the arena. The buffered channel is the mutex so a
// waiter can give up when its context ends.
type keyedLock struct {
	sem  chan struct{}
	refs int
}

// KeyedMutex is an in-process domain.ItemLocker. Locks are created on first
// use and dropped once nobody holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

// NewKeyedMutex creates an empty arena.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is held or ctx is done.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	l := k.acquireRef(key)

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.releaseRef(key, l)
		metrics.IncrementItemLockAttempt(lockBackendLocal, "cancelled")
		return nil, fmt.Errorf("%w: waiting for item lock %s: %w", domain.ErrInternal, key, ctx.Err())
	}
	metrics.IncrementItemLockAttempt(lockBackendLocal, "acquired")

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			k.releaseRef(key, l)
		})
	}, nil
}

// Len returns the number of live lock slots.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *KeyedMutex) acquireRef(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) releaseRef(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
