package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Set(ctx, &Session{ID: "a", Token: "ptoken", URL: "/case/plaintiff?docket=1"}, time.Hour))

	s, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ptoken", s.Token)

	require.NoError(t, m.Delete(ctx, "a"))
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStorePrunesUnreadSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, &Session{ID: "stale"}, time.Minute))
	require.NoError(t, m.Set(ctx, &Session{ID: "fresh"}, time.Hour))
	assert.Len(t, m.entries, 2)

	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Set(ctx, &Session{ID: "next"}, time.Hour))

	assert.Len(t, m.entries, 2)
	assert.NotContains(t, m.entries, "stale")
	assert.Contains(t, m.entries, "fresh")
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemoryStore()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, &Session{ID: "a"}, time.Minute))
	now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestRedis(t)

	sess := &Session{ID: "abc", Token: "jtoken", URL: "/case/judge?docket=12-345"}
	require.NoError(t, store.Set(ctx, sess, time.Hour))

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "jtoken", got.Token)
	assert.Equal(t, "/case/judge?docket=12-345", got.URL)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, s := setupTestRedis(t)

	require.NoError(t, store.Set(ctx, &Session{ID: "abc"}, time.Minute))
	assert.Equal(t, time.Minute, s.TTL("sess:abc"))

	s.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoSession)
}
