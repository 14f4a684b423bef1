package job

import (
	"context"

	"web3-balance/internal/worker/dao"

	"go.uber.org/zap"
)

// ChainNodeWarmup 启动时把链节点全量加载到本地缓存
type ChainNodeWarmup struct {
	nodes dao.ChainNodeDAO
	tl    *zap.Logger
}

func NewChainNodeWarmup(nodes dao.ChainNodeDAO, logger *zap.Logger) *ChainNodeWarmup {
	return &ChainNodeWarmup{nodes: nodes, tl: logger}
}

func (j *ChainNodeWarmup) Run(ctx context.Context) error {
	n, err := j.nodes.LoadAll(ctx)
	if err != nil {
		return err
	}
	j.tl.Info("chain nodes loaded", zap.Int("count", n))
	return nil
}
