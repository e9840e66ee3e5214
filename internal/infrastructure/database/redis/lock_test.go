package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
)

func newMiniClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestLock_TryLockUnlock(t *testing.T) {
	mr, c := newMiniClient(t)
	ctx := context.Background()
	lock := NewDistributedLock(c, "ranking-train", nil, WithLockTTL(time.Minute))

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("tradelink:lock:ranking-train"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("tradelink:lock:ranking-train"))
}

func TestLock_Contention(t *testing.T) {
	_, c := newMiniClient(t)
	ctx := context.Background()
	first := NewDistributedLock(c, "job", nil)
	second := NewDistributedLock(c, "job", nil, WithRetry(2, 5*time.Millisecond))

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ErrLockNotAcquired, second.Lock(ctx))
	assert.Equal(t, ErrLockNotHeld, second.Unlock(ctx))

	require.NoError(t, first.Unlock(ctx))
	require.NoError(t, second.Lock(ctx))
}

func TestLock_ExpiryAndExtend(t *testing.T) {
	mr, c := newMiniClient(t)
	ctx := context.Background()
	lock := NewDistributedLock(c, "job", nil, WithLockTTL(time.Second))

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	extended, err := lock.Extend(ctx, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, extended)
	assert.Equal(t, 10*time.Second, mr.TTL("tradelink:lock:job"))

	mr.FastForward(11 * time.Second)
	extended, err = lock.Extend(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, extended)
}

func TestLock_WatchdogStopsOnUnlock(t *testing.T) {
	_, c := newMiniClient(t)
	ctx := context.Background()
	lock := NewDistributedLock(c, "job", nil, WithLockTTL(time.Second), WithWatchdog(10*time.Millisecond))

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, lock.Unlock(ctx))
	assert.Nil(t, lock.stopDog)
}

//Personal.AI order the ending
