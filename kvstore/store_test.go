package kvstore

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCases(t *testing.T) {
	testStoreCases(t, NewMemoryStore(16))
}

func TestFileStoreCases(t *testing.T) {
	var s, err = NewFileStore(afero.NewMemMapFs(), "/state")
	require.NoError(t, err)
	testStoreCases(t, s)
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	var ctx = context.Background()
	var s = NewMemoryStore(2)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))
	var _, err = s.Get(ctx, "a") // Touch "a", making "b" least-recent.
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))

	_, err = s.Get(ctx, "b")
	assert.Equal(t, ErrNotFound, err)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestFileStoreEscapesKeys(t *testing.T) {
	var fs = afero.NewMemMapFs()
	var s, err = NewFileStore(fs, "/state")
	require.NoError(t, err)

	var ctx = context.Background()
	require.NoError(t, s.Set(ctx, "movies:list/x", []byte("v"), 0))

	ok, err := afero.Exists(fs, "/state/movies:list%2Fx.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func testStoreCases(t *testing.T, s Store) {
	var ctx = context.Background()
	var now = time.Date(2021, 6, 16, 20, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	var _, err = s.Get(ctx, "missing")
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, s.Set(ctx, "forever", []byte("one"), 0))
	require.NoError(t, s.Set(ctx, "brief", []byte("two"), time.Minute))

	b, err := s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), b)
	b, err = s.Get(ctx, "brief")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), b)

	// Overwrite.
	require.NoError(t, s.Set(ctx, "forever", []byte("three"), 0))
	b, _ = s.Get(ctx, "forever")
	assert.Equal(t, []byte("three"), b)

	// Expire "brief".
	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "brief")
	assert.Equal(t, ErrNotFound, err)
	b, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("three"), b)

	require.NoError(t, s.Delete(ctx, "forever"))
	require.NoError(t, s.Delete(ctx, "forever")) // Idempotent.
	_, err = s.Get(ctx, "forever")
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, s.Set(ctx, "x", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "y", []byte("2"), 0))
	require.NoError(t, s.FlushAll(ctx))
	_, err = s.Get(ctx, "x")
	assert.Equal(t, ErrNotFound, err)
	_, err = s.Get(ctx, "y")
	assert.Equal(t, ErrNotFound, err)
}

func TestRedisStoreCases(t *testing.T) {
	var mr = miniredis.RunT(t)
	var s = NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "cache:")

	var ctx = context.Background()
	require.NoError(t, s.Set(ctx, "movies:d1", []byte("one"), time.Minute))
	assert.Equal(t, "one", mustGet(t, mr, "cache:movies:d1"))
	assert.Equal(t, time.Minute, mr.TTL("cache:movies:d1"))

	var b, err = s.Get(ctx, "movies:d1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), b)

	mr.FastForward(time.Minute)
	_, err = s.Get(ctx, "movies:d1")
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, s.Set(ctx, "x", []byte("1"), 0))
	require.NoError(t, s.Delete(ctx, "x"))
	require.NoError(t, s.Delete(ctx, "x")) // Idempotent.
	_, err = s.Get(ctx, "x")
	assert.Equal(t, ErrNotFound, err)
}

func TestRedisFlushLeavesOtherPrefixes(t *testing.T) {
	var mr = miniredis.RunT(t)
	var client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	var cache = NewRedisStore(client, "cache:")
	var state = NewRedisStore(client, "")

	var ctx = context.Background()
	require.NoError(t, state.Set(ctx, "etl_state", []byte(`{"genres_last_dt":"2021-06-16T20:00:00Z"}`), 0))
	for i := 0; i != 1234; i++ {
		require.NoError(t, cache.Set(ctx, "movies:d"+strconv.Itoa(i), []byte("v"), time.Minute))
	}
	require.NoError(t, cache.FlushAll(ctx))

	assert.Equal(t, []string{"etl_state"}, mr.Keys())
	var b, err = state.Get(ctx, "etl_state")
	require.NoError(t, err)
	assert.JSONEq(t, `{"genres_last_dt":"2021-06-16T20:00:00Z"}`, string(b))

	// Without a prefix, a flush would remove every key of the database.
	assert.EqualError(t, state.FlushAll(ctx), "refusing to flush a RedisStore without a key prefix")
	assert.Equal(t, []string{"etl_state"}, mr.Keys())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	var v, err = mr.Get(key)
	require.NoError(t, err)
	return v
}
