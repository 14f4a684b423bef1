package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	chainNodeLocalTTL    = 10 * time.Minute
	chainNodeRedisTTL    = 30 * time.Minute
	chainNodeNegativeTTL = time.Minute
	nullValue            = "null"
)

type chainNodeDAO struct {
	db         *gorm.DB
	rds        *redis.Client
	localCache *cache.Cache
}

func NewChainNodeDAO(db *gorm.DB, rds *redis.Client) ChainNodeDAO {
	return &chainNodeDAO{
		db:         db,
		rds:        rds,
		localCache: cache.New(chainNodeLocalTTL, time.Minute),
	}
}

func (d *chainNodeDAO) GetByID(ctx context.Context, id int64) (*model.ChainNode, error) {
	return d.get(ctx, utils.ChainNodeKey("id", id), "id = ?", id)
}

func (d *chainNodeDAO) GetByEthChainID(ctx context.Context, chainID uint64) (*model.ChainNode, error) {
	return d.get(ctx, utils.ChainNodeKey("eth_chain_id", chainID), "eth_chain_id = ?", chainID)
}

func (d *chainNodeDAO) GetByCosmosChainID(ctx context.Context, chainID string) (*model.ChainNode, error) {
	return d.get(ctx, utils.ChainNodeKey("cosmos_chain_id", chainID), "cosmos_chain_id = ?", chainID)
}

// get 本地缓存 -> Redis -> 数据库
func (d *chainNodeDAO) get(ctx context.Context, cacheKey string, where string, arg any) (*model.ChainNode, error) {
	// 先查本地缓存
	if cached, found := d.localCache.Get(cacheKey); found {
		if node, ok := cached.(*model.ChainNode); ok {
			if node == nil {
				return nil, fmt.Errorf("%w: %s", ErrChainNodeNotFound, cacheKey)
			}
			return node, nil
		}
	}

	// 再查Redis缓存
	if d.rds != nil {
		cached, err := d.rds.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == nullValue {
				d.localCache.Set(cacheKey, (*model.ChainNode)(nil), chainNodeNegativeTTL)
				return nil, fmt.Errorf("%w: %s", ErrChainNodeNotFound, cacheKey)
			}
			var node model.ChainNode
			if sonic.Unmarshal([]byte(cached), &node) == nil {
				d.localCache.Set(cacheKey, &node, cache.DefaultExpiration)
				return &node, nil
			}
		}
	}

	// 查数据库
	var node model.ChainNode
	err := d.db.WithContext(ctx).Where(where, arg).Order("id").First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 缓存空结果，避免缓存穿透
			d.localCache.Set(cacheKey, (*model.ChainNode)(nil), chainNodeNegativeTTL)
			if d.rds != nil {
				d.rds.Set(ctx, cacheKey, nullValue, chainNodeNegativeTTL)
			}
			return nil, fmt.Errorf("%w: %s", ErrChainNodeNotFound, cacheKey)
		}
		return nil, fmt.Errorf("query chain node: %w", err)
	}

	d.updateCache(ctx, cacheKey, &node)
	return &node, nil
}

func (d *chainNodeDAO) updateCache(ctx context.Context, cacheKey string, node *model.ChainNode) {
	d.localCache.Set(cacheKey, node, cache.DefaultExpiration)

	if d.rds == nil {
		return
	}
	if data, err := sonic.Marshal(node); err == nil {
		d.rds.Set(ctx, cacheKey, string(data), chainNodeRedisTTL)
	}
}

func (d *chainNodeDAO) LoadAll(ctx context.Context) (int, error) {
	var nodes []*model.ChainNode
	if err := d.db.WithContext(ctx).Order("id").Find(&nodes).Error; err != nil {
		return 0, fmt.Errorf("load chain nodes: %w", err)
	}

	// 倒序遍历，id 小的节点最后写入
	loaded := make(map[string]*model.ChainNode, len(nodes)*2)
	for i := len(nodes) - 1; i >= 0; i-- {
		node := nodes[i]
		loaded[utils.ChainNodeKey("id", node.ID)] = node
		if node.EthChainID != nil {
			// 同一 chain id 多个节点时取 id 最小的，和单条查询保持一致
			loaded[utils.ChainNodeKey("eth_chain_id", *node.EthChainID)] = node
		}
		if node.CosmosChainID != nil {
			loaded[utils.ChainNodeKey("cosmos_chain_id", *node.CosmosChainID)] = node
		}
	}
	// 覆盖本地的空结果缓存
	for key, node := range loaded {
		d.localCache.Set(key, node, cache.DefaultExpiration)
	}
	return len(nodes), nil
}
