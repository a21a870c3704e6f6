package hubsso

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisReplayCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisReplayCache(client)
	ctx := context.Background()

	first, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	// A different assertion is independent.
	other, err := cache.MarkUsed(ctx, testEmail, "1700000001", "sig", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestRedisReplayCache_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisReplayCache(client)
	ctx := context.Background()

	_, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	first, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", time.Minute)
	require.NoError(t, err)
	assert.True(t, first, "entry should expire with the window")
}

func TestRedisReplayCache_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisReplayCache(client)
	mr.Close()

	_, err := cache.MarkUsed(context.Background(), testEmail, testTimestamp, "sig", time.Minute)
	assert.Error(t, err, "caller decides to fail open on backend errors")
}

func TestLocalReplayCache(t *testing.T) {
	cache := NewLocalReplayCache(128, 5*time.Minute)
	ctx := context.Background()

	first, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestLocalReplayCache_TTLExpiry(t *testing.T) {
	cache := NewLocalReplayCache(128, 50*time.Millisecond)
	ctx := context.Background()

	_, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 0)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	first, err := cache.MarkUsed(ctx, testEmail, testTimestamp, "sig", 0)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestNopReplayCache(t *testing.T) {
	cache := NopReplayCache{}

	for i := 0; i < 3; i++ {
		first, err := cache.MarkUsed(context.Background(), testEmail, testTimestamp, "sig", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)
	}
}
