package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const frameKeyPrefix = "frame:"

// RedisFrameCache shares downloaded frame bytes between server instances.
type RedisFrameCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisFrameCache(client *redis.Client, ttl time.Duration) *RedisFrameCache {
	return &RedisFrameCache{client: client, ttl: ttl}
}

func (c *RedisFrameCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, frameKeyPrefix+key).Bytes()
}

func (c *RedisFrameCache) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, frameKeyPrefix+key, data, c.ttl).Err()
}

func (c *RedisFrameCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, frameKeyPrefix+key).Err()
}
