package hubsso

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ReplayCache records assertions that have already been accepted. The
// freshness window alone only bounds replay; the cache upgrades it to
// single-use while an assertion is still fresh.
//
// Usage is best effort: MarkUsed errors mean the backend is down, and
// callers must let the login proceed rather than fail it.
type ReplayCache interface {
	// MarkUsed records the assertion and reports whether this was its
	// first use.
	MarkUsed(ctx context.Context, email, timestamp, signature string, ttl time.Duration) (bool, error)
}

// replayKey derives a fixed-size cache key from the assertion. The raw
// signature never becomes a key, so cache dumps don't expose replayable
// material.
func replayKey(email, timestamp, signature string) string {
	sum := sha256.Sum256([]byte(email + ":" + timestamp + ":" + signature))
	return "hubsso:replay:" + hex.EncodeToString(sum[:])
}

// NopReplayCache never rejects. Used when no cache backend is
// configured; the window check remains the only replay bound.
type NopReplayCache struct{}

func (NopReplayCache) MarkUsed(ctx context.Context, email, timestamp, signature string, ttl time.Duration) (bool, error) {
	return true, nil
}

// RedisReplayCache enforces single-use across bridge replicas with
// SetNX and a TTL equal to the replay window.
type RedisReplayCache struct {
	client *redis.Client
}

// NewRedisReplayCache creates a Redis-backed replay cache
func NewRedisReplayCache(client *redis.Client) *RedisReplayCache {
	return &RedisReplayCache{client: client}
}

func (c *RedisReplayCache) MarkUsed(ctx context.Context, email, timestamp, signature string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, replayKey(email, timestamp, signature), 1, ttl).Result()
}

// LocalReplayCache enforces single-use within one process using an
// expirable LRU. Suitable for single-replica deployments without
// Redis.
type LocalReplayCache struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, struct{}]
}

// NewLocalReplayCache creates an in-process replay cache. Entries
// expire after ttl; size bounds memory under assertion floods.
func NewLocalReplayCache(size int, ttl time.Duration) *LocalReplayCache {
	return &LocalReplayCache{
		cache: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

func (c *LocalReplayCache) MarkUsed(ctx context.Context, email, timestamp, signature string, ttl time.Duration) (bool, error) {
	key := replayKey(email, timestamp, signature)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache.Get(key); ok {
		return false, nil
	}
	c.cache.Add(key, struct{}{})
	return true, nil
}
