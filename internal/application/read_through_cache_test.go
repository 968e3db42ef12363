package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/forum-service/internal/adapters/memory"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

func countingLoader(calls *atomic.Int32, payload string) Loader {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte(payload), nil
	}
}

func TestReadThroughCache_SecondCallIsServedFromCache(t *testing.T) {
	clock := newFakeClock()
	c := NewReadThroughCache(memory.NewCacheStore(clock.Now), testLogger(t))
	ctx := context.Background()
	var calls atomic.Int32
	loaderA := countingLoader(&calls, `[{"id":"u1"}]`)

	first, err := c.GetOrLoad(ctx, "users", loaderA, time.Hour)
	require.NoError(t, err)
	clock.Advance(time.Second - time.Nanosecond)
	second, err := c.GetOrLoad(ctx, "users", loaderA, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReadThroughCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewReadThroughCache(memory.NewCacheStore(clock.Now), testLogger(t))
	ctx := context.Background()
	var calls atomic.Int32

	_, err := c.GetOrLoad(ctx, "k", countingLoader(&calls, "v1"), 10*time.Second)
	require.NoError(t, err)

	clock.Advance(9 * time.Second)
	got, err := c.GetOrLoad(ctx, "k", countingLoader(&calls, "v2"), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got), "served from cache before expiry")

	clock.Advance(time.Second)
	got, err = c.GetOrLoad(ctx, "k", countingLoader(&calls, "v2"), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got), "reloaded at expiry")
	assert.Equal(t, int32(2), calls.Load())
}

func TestReadThroughCache_LoaderFailureIsNotCached(t *testing.T) {
	c := NewReadThroughCache(memory.NewCacheStore(nil), testLogger(t))
	ctx := context.Background()

	_, err := c.GetOrLoad(ctx, "k", func(context.Context) ([]byte, error) { return nil, errBoom }, time.Hour)
	require.ErrorIs(t, err, errBoom)

	var calls atomic.Int32
	got, err := c.GetOrLoad(ctx, "k", countingLoader(&calls, "ok"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
	assert.Equal(t, int32(1), calls.Load())
}

func TestReadThroughCache_NonPositiveTTLSkipsStore(t *testing.T) {
	c := NewReadThroughCache(memory.NewCacheStore(nil), testLogger(t))
	ctx := context.Background()
	var calls atomic.Int32

	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(ctx, "k", countingLoader(&calls, "v"), 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

// brokenCacheStore fails every operation with a non-miss error.
type brokenCacheStore struct{}

func (brokenCacheStore) Get(context.Context, string) ([]byte, error) { return nil, errBoom }
func (brokenCacheStore) Set(context.Context, string, []byte, time.Duration) error {
	return errBoom
}
func (brokenCacheStore) Delete(context.Context, ...string) error { return errBoom }

func TestReadThroughCache_StoreFailuresDegradeToLoader(t *testing.T) {
	c := NewReadThroughCache(brokenCacheStore{}, testLogger(t))
	ctx := context.Background()
	var calls atomic.Int32

	got, err := c.GetOrLoad(ctx, "k", countingLoader(&calls, "fresh"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))

	c.Invalidate(ctx, "k") // logged only
	assert.Equal(t, int32(1), calls.Load())
}

func TestReadThroughCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := NewReadThroughCache(memory.NewCacheStore(nil), testLogger(t))
	ctx := context.Background()

	var calls atomic.Int32
	gate := make(chan struct{})
	loader := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-gate
		return []byte("v"), nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([][]byte, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(ctx, "k", loader, time.Hour)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "v", string(r))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestReadThroughCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := NewReadThroughCache(memory.NewCacheStore(nil), testLogger(t))

	var calls atomic.Int32
	started := make(chan struct{})
	var startOnce sync.Once
	gate := make(chan struct{})
	loader := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		select {
		case <-gate:
			return []byte("v"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(firstCtx, "k", loader, time.Hour)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		payload []byte
		err     error
	}
	second := make(chan outcome, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "k", loader, time.Hour)
		second <- outcome{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared load")
	}

	close(gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "v", string(got.payload))
	assert.Equal(t, int32(1), calls.Load())

	cached, err := c.GetOrLoad(context.Background(), "k", loader, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "v", string(cached))
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoadJSON_RoundTripAndInvalidate(t *testing.T) {
	c := NewReadThroughCache(memory.NewCacheStore(nil), testLogger(t))
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]domain.User, error) {
		calls++
		return []domain.User{{ID: "u1", Username: "ann"}}, nil
	}

	users, err := LoadJSON(ctx, c, domain.CacheKeyUsers, time.Hour, load)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ann", users[0].Username)

	_, err = LoadJSON(ctx, c, domain.CacheKeyUsers, time.Hour, load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.Invalidate(ctx, domain.CacheKeyUsers)
	_, err = LoadJSON(ctx, c, domain.CacheKeyUsers, time.Hour, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
