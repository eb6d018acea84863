package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlkwl/supermarket/internal/domain"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, ttl), mr
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, Principal{UserID: 7, Username: "alice", Role: domain.RoleUser})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.False(t, p.IsAdmin())
}

func TestSessionUnknownToken(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	_, err := store.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDestroy(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, Principal{UserID: 7, Username: "alice", Role: domain.RoleUser})
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, token))

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionExpires(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, Principal{UserID: 7, Username: "alice", Role: domain.RoleUser})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionSlidingExpiry(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, Principal{UserID: 7, Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	// Each read refreshes the TTL, so the session outlives its original
	// expiry as long as it stays active.
	mr.FastForward(40 * time.Second)
	p, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	mr.FastForward(40 * time.Second)
	_, err = store.Get(ctx, token)
	assert.NoError(t, err)
}
