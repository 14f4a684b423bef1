package dao

import (
	"context"
	"errors"

	"web3-balance/internal/worker/model"
)

var ErrChainNodeNotFound = errors.New("chain node not found")

// ChainNodeDAO 链节点只读查询
type ChainNodeDAO interface {
	GetByID(ctx context.Context, id int64) (*model.ChainNode, error)

	GetByEthChainID(ctx context.Context, chainID uint64) (*model.ChainNode, error)

	GetByCosmosChainID(ctx context.Context, chainID string) (*model.ChainNode, error)

	// LoadAll 全量加载到本地缓存，返回加载条数
	LoadAll(ctx context.Context) (int, error)
}
