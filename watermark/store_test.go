package watermark

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.cinedex.dev/core/kvstore"
	"go.cinedex.dev/core/retry"
)

func TestLoadSetAndReload(t *testing.T) {
	var ctx = context.Background()
	var kv = kvstore.NewMemoryStore(8)
	var s = NewStore(kv, DefaultKey, testPolicy)

	require.NoError(t, s.Load(ctx, false))
	var wm, ok = s.Get("fw_last_filmwork_dt")
	assert.False(t, ok)
	assert.True(t, wm.IsZero())

	var t1 = time.Date(2021, 6, 16, 20, 14, 9, 221855000, time.UTC)
	require.NoError(t, s.Set(ctx, "fw_last_filmwork_dt", t1))
	require.NoError(t, s.Set(ctx, "genres_last_dt", t1.Add(-time.Hour)))

	// The complete map is persisted under the single well-known key.
	var b, err = kv.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"fw_last_filmwork_dt": "2021-06-16T20:14:09.221855Z",
		"genres_last_dt": "2021-06-16T19:14:09.221855Z"
	}`, string(b))

	var other = NewStore(kv, DefaultKey, testPolicy)
	require.NoError(t, other.Load(ctx, false))
	wm, ok = other.Get("fw_last_filmwork_dt")
	assert.True(t, ok)
	assert.True(t, t1.Equal(wm))

	assert.Equal(t, []Mark{
		{StateKey: "fw_last_filmwork_dt", Watermark: t1},
		{StateKey: "genres_last_dt", Watermark: t1.Add(-time.Hour)},
	}, other.Marks())
}

func TestSetIsMonotonic(t *testing.T) {
	var ctx = context.Background()
	var s = NewStore(kvstore.NewMemoryStore(8), DefaultKey, testPolicy)
	require.NoError(t, s.Load(ctx, false))

	var t1 = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "k", t1))
	require.NoError(t, s.Set(ctx, "k", t1.Add(-time.Second)))
	require.NoError(t, s.Set(ctx, "k", t1))

	var wm, _ = s.Get("k")
	assert.Equal(t, t1, wm)
}

func TestCleanLoadDeletesState(t *testing.T) {
	var ctx = context.Background()
	var kv = kvstore.NewMemoryStore(8)
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"persons_last_dt":"2021-06-16 20:14:09.221855+00:00"}`), 0))

	var s = NewStore(kv, DefaultKey, testPolicy)
	require.NoError(t, s.Load(ctx, false))
	var wm, ok = s.Get("persons_last_dt")
	assert.True(t, ok)
	assert.Equal(t, 221855000, wm.Nanosecond())

	require.NoError(t, s.Load(ctx, true))
	_, ok = s.Get("persons_last_dt")
	assert.False(t, ok)
	var _, err = kv.Get(ctx, DefaultKey)
	assert.Equal(t, kvstore.ErrNotFound, err)
}

func TestFailedPersistDoesNotAdvance(t *testing.T) {
	var ctx = context.Background()
	var kv = &failingStore{Store: kvstore.NewMemoryStore(8)}
	var s = NewStore(kv, DefaultKey, testPolicy)
	require.NoError(t, s.Load(ctx, false))

	var t1 = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, "k", t1))

	kv.fail = true
	assert.Error(t, s.Set(ctx, "k", t1.Add(time.Hour)))
	assert.Error(t, s.Set(ctx, "other", t1))

	var wm, _ = s.Get("k")
	assert.Equal(t, t1, wm)
	var _, ok = s.Get("other")
	assert.False(t, ok)

	assert.Error(t, s.Reset(ctx))
	assert.Len(t, s.Marks(), 1)

	kv.fail = false
	require.NoError(t, s.Reset(ctx, "k"))
	assert.Empty(t, s.Marks())
}

func TestLoadRejectsMalformedState(t *testing.T) {
	var ctx = context.Background()
	var kv = kvstore.NewMemoryStore(8)
	require.NoError(t, kv.Set(ctx, DefaultKey, []byte(`{"k":"yesterday"}`), 0))

	var err = NewStore(kv, DefaultKey, testPolicy).Load(ctx, false)
	assert.EqualError(t, err, `decoding watermarks of "etl_state": state key "k": invalid timestamp "yesterday"`)
}

type failingStore struct {
	kvstore.Store
	fail bool
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.fail {
		return errors.New("connection refused")
	}
	return s.Store.Set(ctx, key, value, ttl)
}

var testPolicy = retry.Policy{Initial: time.Millisecond, Factor: 1, Max: time.Millisecond, MaxAttempts: 2}
