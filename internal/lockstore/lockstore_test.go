package lockstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestAcquireBulkAllOrNothing(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireBulk(ctx, []string{"seat:1", "seat:2"}, "alice", 120*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// Overlapping set: seat:2 is held, so seat:3 must stay untouched too.
	ok, err = s.AcquireBulk(ctx, []string{"seat:2", "seat:3"}, "bob", 120*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("seat:3"), "failed bulk acquire must not modify any key")

	// Disjoint set succeeds independently.
	ok, err = s.AcquireBulk(ctx, []string{"seat:3"}, "bob", 120*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireBulkSetsOwnerAndTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireBulk(ctx, []string{"seat:1"}, "alice", 120*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 120*time.Second, mr.TTL("seat:1"))

	owner, held, err := s.Owner(ctx, "seat:1")
	require.NoError(t, err)
	require.True(t, held)
	assert.Equal(t, "alice", owner)
}

func TestAbandonedHoldSelfHeals(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AcquireBulk(ctx, []string{"seat:1"}, "alice", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute)

	ok, err = s.AcquireBulk(ctx, []string{"seat:1"}, "bob", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "an expired hold must be reacquirable")

	owner, held, err := s.Owner(ctx, "seat:1")
	require.NoError(t, err)
	require.True(t, held)
	assert.Equal(t, "bob", owner)
}

func TestReleaseOwnedChecksOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	keys := []string{"seat:1", "seat:2"}

	ok, err := s.AcquireBulk(ctx, keys, "alice", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.ReleaseOwned(ctx, keys, "mallory")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n, "a foreign token must release nothing")
	_, held, err := s.Owner(ctx, "seat:1")
	require.NoError(t, err)
	assert.True(t, held)

	n, err = s.ReleaseOwned(ctx, keys, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, held, err = s.Owner(ctx, "seat:1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestIncrWindowCountsAndExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := s.IncrWindow(ctx, "ratelimit:10.0.0.1", time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, time.Second, mr.TTL("ratelimit:10.0.0.1"), "the first increment starts the window")

	mr.FastForward(time.Second)

	n, err := s.IncrWindow(ctx, "ratelimit:10.0.0.1", time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "an expired window restarts the count")
}

func TestGetSetRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "shows:theater:3")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "shows:theater:3", []byte(`[]`), 30*time.Second))
	v, ok, err := s.Get(ctx, "shows:theater:3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[]`), v)
	assert.Equal(t, 30*time.Second, mr.TTL("shows:theater:3"))
}

func TestNilClientReturnsUnavailable(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	_, err := s.AcquireBulk(ctx, []string{"seat:1"}, "a", time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.ReleaseOwned(ctx, []string{"seat:1"}, "a")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.IncrWindow(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Set(ctx, "k", nil, time.Second), ErrUnavailable)
	_, _, err = s.Owner(ctx, "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}
