package pagecache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "yatube:page:"), mr, client
}

func TestRedisStore_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	store, mr, _ := newRedisStore(t)

	_, ok, err := store.Get(ctx, "index")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "index", []byte("page"), 20*time.Second))
	got, ok, err := store.Get(ctx, "index")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("page"), got)

	mr.FastForward(21 * time.Second)
	_, ok, err = store.Get(ctx, "index")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ClearOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	store, _, client := newRedisStore(t)

	require.NoError(t, client.Set(ctx, "other:key", "keep", 0).Err())
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, k, []byte(k), time.Minute))
	}

	require.NoError(t, store.Clear(ctx))

	for _, k := range []string{"a", "b", "c"} {
		_, ok, err := store.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	v, err := client.Get(ctx, "other:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newRedisStore(t)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 20*time.Second))

	now = now.Add(19 * time.Second)
	got, ok, _ := store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Second)
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStore_ClearAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, store.Delete(ctx, "a"))
	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok)
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'x'
	got, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
}

func TestMemoryStore_SweepsExpiredWhenFull(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	for i := 0; i < DefaultMaxEntries; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("/?x=%d", i), []byte("v"), 20*time.Second))
	}
	assert.Equal(t, DefaultMaxEntries, store.Len())

	now = now.Add(time.Hour)
	require.NoError(t, store.Set(ctx, "/", []byte("fresh"), 20*time.Second))
	assert.Equal(t, 1, store.Len())

	got, ok, _ := store.Get(ctx, "/")
	assert.True(t, ok)
	assert.Equal(t, []byte("fresh"), got)
}

func TestMemoryStore_CapsLiveEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore().WithMaxEntries(9)

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute))
		assert.LessOrEqual(t, store.Len(), 9)
	}

	// the newest write always survives the cull
	_, ok, _ := store.Get(ctx, "k99")
	assert.True(t, ok)

	// overwriting an existing key never culls
	before := store.Len()
	require.NoError(t, store.Set(ctx, "k99", []byte("w"), time.Minute))
	assert.Equal(t, before, store.Len())
}
