package snapshot

import (
	"context"

	"web3-balance/internal/worker/model"
	"web3-balance/internal/worker/writer"
	"web3-balance/pkg/elasticsearch"
	"web3-balance/pkg/utils"

	"go.uber.org/zap"
)

// BulkClient elasticsearch.Client 的批量写入接口
type BulkClient interface {
	BulkWrite(ctx context.Context, operations []elasticsearch.BulkOperation) error
}

// ESSnapshotWriter 每个地址/来源一条文档，文档 id 为缓存 key 的 md5，重复写入即覆盖
type ESSnapshotWriter struct {
	esClient BulkClient
	logger   *zap.Logger
	index    string
}

func NewESSnapshotWriter(esClient BulkClient, logger *zap.Logger, index string) writer.SnapshotWriter {
	return &ESSnapshotWriter{
		esClient: esClient,
		logger:   logger,
		index:    index,
	}
}

func (w *ESSnapshotWriter) BWrite(ctx context.Context, snapshots []model.BalanceSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// 同一批次内相同文档只保留最后一条
	latest := make(map[string]int, len(snapshots))
	for i, s := range snapshots {
		latest[utils.DocID(s.CacheKey)] = i
	}

	operations := make([]elasticsearch.BulkOperation, 0, len(latest))
	for i, s := range snapshots {
		docID := utils.DocID(s.CacheKey)
		if latest[docID] != i {
			continue
		}
		operations = append(operations, elasticsearch.BulkOperation{
			Action:   "index",
			Index:    w.index,
			ID:       docID,
			Document: s,
		})
	}

	if err := w.esClient.BulkWrite(ctx, operations); err != nil {
		w.logger.Warn("write balance snapshots failed", zap.Int("docs", len(operations)), zap.Error(err))
		return err
	}
	return nil
}

func (w *ESSnapshotWriter) Close() error {
	return nil
}
