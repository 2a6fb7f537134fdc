package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "shipment:1:current")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "shipment:1:current", []byte(`{"id":1}`), time.Minute))

	val, ok, err := c.Get(ctx, "shipment:1:current")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"id":1}`), val)

	require.NoError(t, c.Delete(ctx, "shipment:1:current"))

	_, ok, err = c.Get(ctx, "shipment:1:current")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		ok, n, err := rl.Allow(ctx, "ws:join:conn_1", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, n)
	}

	ok, n, err := rl.Allow(ctx, "ws:join:conn_1", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int64(4), n)

	// Другой ключ считается отдельно.
	ok, _, err = rl.Allow(ctx, "ws:join:conn_2", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Окно истекло — счёт начинается заново.
	mr.FastForward(2 * time.Minute)
	ok, n, err = rl.Allow(ctx, "ws:join:conn_1", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}
