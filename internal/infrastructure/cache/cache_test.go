package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/infrastructure/cache"
	"github.com/jhoicas/erp-api/pkg/config"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := cache.NewLocalLocker()

	release, err := l.Acquire(ctx, "audit", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "audit", time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = l.Acquire(ctx, "otra", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, "audit", time.Minute)
	assert.NoError(t, err)
}

func TestLocalLocker_Vence(t *testing.T) {
	ctx := context.Background()
	l := cache.NewLocalLocker()
	_, err := l.Acquire(ctx, "k", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}

func redisAddr() string {
	if a := os.Getenv("TEST_REDIS_ADDRESS"); a != "" {
		return a
	}
	return "localhost:6379"
}

func TestRedisCacheYLocker(t *testing.T) {
	ctx := context.Background()
	client, err := cache.NewRedisClient(ctx, config.RedisConfig{Address: redisAddr()})
	if err != nil {
		t.Skipf("redis no disponible: %v", err)
	}
	defer client.Close()

	prefix := "test:" + uuid.NewString() + ":"
	c := cache.NewRedisCache(client, prefix)

	type payload struct{ N int }
	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", payload{N: 7}, time.Minute))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, got.N)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	locker := cache.NewRedisLocker(client)
	key := prefix + "lock"
	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, release(ctx))
	release, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}
