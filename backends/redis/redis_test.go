package redis

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ajiwo/withdrawguard/backends"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisTest(t *testing.T) (*Backend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	storage, err := New(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	return storage, mr
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(Config{Addr: addr})
	require.Error(t, err)
	assert.True(t, backends.IsHealthError(err))
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRedisStorage_GetSet(t *testing.T) {
	ctx := t.Context()
	storage, mr := setupRedisTest(t)

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
		require.NoError(t, storage.Set(ctx, "expiredkey", "expiredvalue", time.Second))
		mr.FastForward(2 * time.Second)

		val, err := storage.Get(ctx, "expiredkey")
		require.NoError(t, err)
		require.Equal(t, "", val)
	})

	t.Run("Zero expiration persists", func(t *testing.T) {
		require.NoError(t, storage.Set(ctx, "forever", "value", 0))
		mr.FastForward(24 * time.Hour)

		val, err := storage.Get(ctx, "forever")
		require.NoError(t, err)
		require.Equal(t, "value", val)
		require.Equal(t, time.Duration(0), mr.TTL("forever"))
	})
}

func TestRedisStorage_CheckAndSet(t *testing.T) {
	ctx := t.Context()
	storage, mr := setupRedisTest(t)

	ok, err := storage.CheckAndSet(ctx, "cas", "", "v1", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = storage.CheckAndSet(ctx, "cas", "", "v2", 0)
	require.NoError(t, err)
	require.False(t, ok, "key exists, must not overwrite")

	ok, err = storage.CheckAndSet(ctx, "cas", "v1", "v2", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = storage.CheckAndSet(ctx, "cas", "v1", "v3", 0)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := mr.Get("cas")
	require.NoError(t, err)
	require.Equal(t, "v2", got)

	t.Run("with expiration", func(t *testing.T) {
		ok, err := storage.CheckAndSet(ctx, "ttl", "", "v", 1500*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 1500*time.Millisecond, mr.TTL("ttl"))
	})
}

func TestRedisStorage_ConcurrentCheckAndSet(t *testing.T) {
	ctx := t.Context()
	storage, _ := setupRedisTest(t)

	const numGoroutines = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := range numGoroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			ok, err := storage.CheckAndSet(ctx, "contended", "", fmt.Sprintf("owner-%d", id), 0)
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, winners)
}

func TestRedisStorage_Delete(t *testing.T) {
	ctx := t.Context()
	storage, _ := setupRedisTest(t)

	require.NoError(t, storage.Set(ctx, "deletekey", "value", time.Hour))
	require.NoError(t, storage.Delete(ctx, "deletekey"))

	val, err := storage.Get(ctx, "deletekey")
	require.NoError(t, err)
	require.Equal(t, "", val)
}

func TestRedisStorage_ServerDown(t *testing.T) {
	ctx := t.Context()
	storage, mr := setupRedisTest(t)
	mr.Close()

	_, err := storage.Get(ctx, "key")
	require.Error(t, err)
	assert.True(t, backends.IsHealthError(err), "expected health error, got %v", err)
}

func TestRegister(t *testing.T) {
	mr := miniredis.RunT(t)

	backend, err := backends.Create("redis", Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = backends.Create("redis", "localhost:6379")
	require.ErrorIs(t, err, backends.ErrInvalidConfig)
}
