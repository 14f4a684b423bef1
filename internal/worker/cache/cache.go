package cache

import (
	"context"
	"fmt"
	"time"

	"web3-balance/internal/worker/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client 余额缓存的 key-value 存储，key 按 namespace 隔离
type Client interface {
	// GetKeys 只返回命中的 key
	GetKeys(ctx context.Context, namespace string, keys []string) (map[string]string, error)
	SetKeys(ctx context.Context, namespace string, values map[string]string, ttl time.Duration) error
}

// New 按 balance.cache_backend 选择实现
func New(backend string, rdb *redis.Client, tl *zap.Logger) (Client, error) {
	switch backend {
	case "", config.CacheBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis client")
		}
		return NewRedisCache(rdb, tl), nil
	case config.CacheBackendLocal:
		return NewLocalCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
