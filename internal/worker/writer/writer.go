package writer

import (
	"context"

	"web3-balance/internal/worker/model"
)

// BatchWriter 批量写入下游，由 AsyncBatchWriter 按批次大小或刷新间隔驱动
// AsyncBatchWriter 不重试失败批次，需要重试的实现在 BWrite 内自行处理
type BatchWriter[T any] interface {
	BWrite(ctx context.Context, batch []T) error
	Close() error
}

// ResultWriter 余额请求结果发布到 kafka 结果 topic（snapshot.KafkaResultWriter）
type ResultWriter = BatchWriter[model.BalanceResultEvent]

// SnapshotWriter 新查询到的余额写入 es 快照索引（snapshot.ESSnapshotWriter）
type SnapshotWriter = BatchWriter[model.BalanceSnapshot]
