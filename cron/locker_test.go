package cron

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, zap.NewNop()), mr
}

func TestRedisLocker_ExclusiveUntilUnlocked(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	ok, token, err := l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	ok, _, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, l.Unlock(ctx, "k", "someone-else"), ErrLockNotOwned)
	require.NoError(t, l.Unlock(ctx, "k", token))

	ok, _, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ExpiryAndRefresh(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	ok, token, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Refresh(ctx, "k", token, time.Minute))
	mr.FastForward(30 * time.Second)
	assert.True(t, mr.Exists("k"))

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("k"))
	assert.ErrorIs(t, l.Refresh(ctx, "k", token, time.Minute), ErrLockNotOwned)
}
