package cache

import (
	"context"
	"time"

	"web3-balance/pkg/utils"

	"github.com/patrickmn/go-cache"
)

const localCleanupInterval = time.Minute

// LocalCache 进程内缓存，单机运行和测试使用
type LocalCache struct {
	localCache *cache.Cache
}

func NewLocalCache() *LocalCache {
	return &LocalCache{localCache: cache.New(cache.NoExpiration, localCleanupInterval)}
}

func (c *LocalCache) GetKeys(_ context.Context, namespace string, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, found := c.localCache.Get(utils.NamespacedKey(namespace, k)); found {
			out[k] = v.(string)
		}
	}
	return out, nil
}

func (c *LocalCache) SetKeys(_ context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	for k, v := range values {
		c.localCache.Set(utils.NamespacedKey(namespace, k), v, ttl)
	}
	return nil
}
