package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/adapters/redis"
	"github.com/hgl-pong/baklavajs-sub000/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "graph1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:graph1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:graph1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := first.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)

	timeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = second.Lock(timeout, "shared", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := second.Lock(ctx, "shared", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "g", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "g", 5*time.Second)
	require.NoError(t, err)

	// The expired owner must not release the new one.
	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:g"))

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:g"))
}

func TestRedisLocker_WithSessionManager(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	manager := session.NewManager(store, session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)))

	var held bool
	err := manager.WithLock(context.Background(), "g", func(context.Context) error {
		held = mr.Exists(redis.DefaultPrefix + "lock:g")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, held)
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:g"))
}
