package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/roboflow/pkg/adapters/redis"
	"github.com/aretw0/roboflow/pkg/ports"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "device:emulator-5554", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:device:emulator-5554"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:device:emulator-5554"))
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	locker1 := redis.NewLocker(client, "")
	locker2 := redis.NewLocker(client, "")
	ctx := context.Background()
	key := "device:shared"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()
	assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:"+key))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// The first lease expires and another holder takes over.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:k"), "a stale unlock must not release the new owner")
	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:k"))
}

func TestRedisLocker_Renew(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()
	key := redis.DefaultPrefix + "lock:k"

	assert.ErrorIs(t, locker.Renew(ctx, "k", time.Second), ports.ErrLeaseLost, "nothing held yet")

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(800 * time.Millisecond)
	require.NoError(t, locker.Renew(ctx, "k", time.Second))
	mr.FastForward(800 * time.Millisecond)
	assert.True(t, mr.Exists(key), "renewed lease outlives the original ttl")

	// The lease expires and another process takes the key.
	mr.FastForward(2 * time.Second)
	other := redis.NewLocker(client, "")
	unlockOther, err := other.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, locker.Renew(ctx, "k", time.Second), ports.ErrLeaseLost)

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlockOther(ctx))
	assert.ErrorIs(t, other.Renew(ctx, "k", time.Second), ports.ErrLeaseLost, "released leases cannot be renewed")
}
