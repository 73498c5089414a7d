package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by the tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newWithClock() (*Backend, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	storage := New()
	storage.now = clock.Now
	return storage, clock
}

func TestMemoryStorage_Get(t *testing.T) {
	storage, clock := newWithClock()
	ctx := t.Context()

	t.Run("Get non-existent key", func(t *testing.T) {
		val, err := storage.Get(ctx, "nonexistent")
		require.NoError(t, err)
		require.Equal(t, "", val)
	})

	t.Run("Get existing value", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, "testkey", "testvalue", time.Hour))

		val, err := storage.Get(ctx, "testkey")
		require.NoError(t, err)
		require.Equal(t, "testvalue", val)
	})

	t.Run("Get expired value", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, "expiredkey", "expiredvalue", 10*time.Millisecond))
		clock.Advance(20 * time.Millisecond)

		val, err := storage.Get(ctx, "expiredkey")
		require.NoError(t, err)
		require.Equal(t, "", val)
	})
}

func TestMemoryStorage_ZeroExpirationNeverExpires(t *testing.T) {
	storage, clock := newWithClock()
	ctx := t.Context()

	require.NoError(t, storage.Set(ctx, "forever", "value", 0))
	clock.Advance(24 * 365 * time.Hour)

	val, err := storage.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, "value", val)
}

func TestMemoryStorage_CheckAndSet(t *testing.T) {
	storage, clock := newWithClock()
	ctx := t.Context()

	t.Run("set if not exists", func(t *testing.T) {
		ok, err := storage.CheckAndSet(ctx, "cas", "", "v1", 0)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = storage.CheckAndSet(ctx, "cas", "", "v2", 0)
		require.NoError(t, err)
		require.False(t, ok, "key exists, must not overwrite")
	})

	t.Run("swap on match", func(t *testing.T) {
		ok, err := storage.CheckAndSet(ctx, "cas", "v1", "v2", 0)
		require.NoError(t, err)
		require.True(t, ok)

		val, _ := storage.Get(ctx, "cas")
		require.Equal(t, "v2", val)
	})

	t.Run("mismatch leaves value", func(t *testing.T) {
		ok, err := storage.CheckAndSet(ctx, "cas", "v1", "v3", 0)
		require.NoError(t, err)
		require.False(t, ok)

		val, _ := storage.Get(ctx, "cas")
		require.Equal(t, "v2", val)
	})

	t.Run("missing key with non-empty old value", func(t *testing.T) {
		ok, err := storage.CheckAndSet(ctx, "absent", "v1", "v2", 0)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("expired key counts as absent", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, "short", "old", time.Second))
		clock.Advance(2 * time.Second)

		ok, err := storage.CheckAndSet(ctx, "short", "old", "new", 0)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = storage.CheckAndSet(ctx, "short", "", "new", 0)
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestMemoryStorage_Delete(t *testing.T) {
	storage := New()
	ctx := context.Background()

	require.NoError(t, storage.Set(ctx, "deletekey", "value", time.Hour))
	require.NoError(t, storage.Delete(ctx, "deletekey"))

	val, err := storage.Get(ctx, "deletekey")
	require.NoError(t, err)
	require.Equal(t, "", val)

	require.NoError(t, storage.Delete(ctx, "nonexistent"))
}

func TestMemoryStorage_ConcurrentCheckAndSet(t *testing.T) {
	storage := New()
	ctx := t.Context()

	const numGoroutines = 20
	var wg sync.WaitGroup
	wins := make(chan int, numGoroutines)

	for i := range numGoroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ok, err := storage.CheckAndSet(ctx, "contended", "", fmt.Sprintf("owner-%d", id), 0)
			if err == nil && ok {
				wins <- id
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1, "exactly one goroutine must win set-if-absent")
}

func TestMemoryStorage_Close(t *testing.T) {
	storage := New()
	ctx := t.Context()

	require.NoError(t, storage.Set(ctx, "key1", "value1", time.Hour))
	require.NoError(t, storage.Close())

	val, err := storage.Get(ctx, "key1")
	require.NoError(t, err)
	require.Equal(t, "", val)
}
