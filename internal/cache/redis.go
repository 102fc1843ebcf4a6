package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"campaignhub/internal/config"
)

// RedisCache keeps audience sizes in Redis with a fixed TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis backed audience cache
func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
	}
}

func (c *RedisCache) GetAudienceSize(ctx context.Context, segmentID int) (int, error) {
	val, err := c.client.Get(ctx, audienceKey(segmentID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read audience size: %w", err)
	}

	size, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt audience size %q: %w", val, err)
	}
	return size, nil
}

func (c *RedisCache) SetAudienceSize(ctx context.Context, segmentID int, size int) error {
	if err := c.client.Set(ctx, audienceKey(segmentID), size, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write audience size: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, segmentID int) error {
	return c.client.Del(ctx, audienceKey(segmentID)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
