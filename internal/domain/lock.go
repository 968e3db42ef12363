package domain

import (
	"context"
)

// ItemLocker serializes read-modify-write sequences on a single item.
// Lock blocks until the lock for key is held or ctx is done. The returned
// release function must be called exactly once.
type ItemLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// LeaseLocker is an ItemLocker whose locks expire on their own after a TTL.
// Lease returns a context that is done shortly before the lock can expire, so
// work guarded by the lock stops before another holder may take it over.
type LeaseLocker interface {
	ItemLocker
	Lease(ctx context.Context, key string) (leaseCtx context.Context, release func(), err error)
}
