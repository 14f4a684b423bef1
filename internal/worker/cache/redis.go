package cache

import (
	"context"
	"fmt"
	"time"

	"web3-balance/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	maxWriteAttempts = 3
	writeRetryWait   = 100 * time.Millisecond
)

type RedisCache struct {
	tl    *zap.Logger
	redis *redis.Client
}

func NewRedisCache(rdb *redis.Client, tl *zap.Logger) *RedisCache {
	return &RedisCache{tl: tl, redis: rdb}
}

// GetKeys 一次 MGET
func (c *RedisCache) GetKeys(ctx context.Context, namespace string, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = utils.NamespacedKey(namespace, k)
	}

	values, err := c.redis.MGet(ctx, fullKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

// SetKeys pipeline 批量 SET EX，失败重试
func (c *RedisCache) SetKeys(ctx context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		pipe := c.redis.Pipeline()
		for k, v := range values {
			pipe.Set(ctx, utils.NamespacedKey(namespace, k), v, ttl)
		}
		if _, err = pipe.Exec(ctx); err == nil {
			return nil
		}

		c.tl.Warn("redis set balances failed",
			zap.Int("attempt", attempt),
			zap.Int("keys", len(values)),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * writeRetryWait):
		}
	}
	return fmt.Errorf("redis set balances after %d attempts: %w", maxWriteAttempts, err)
}
