package writer

import (
	"context"
	"sync"
	"time"

	"web3-balance/internal/worker/monitor"

	"go.uber.org/zap"
)

const (
	defaultQueueSize  = 10000
	finalFlushTimeout = 5 * time.Second
)

// AsyncBatchWriter 按数量或时间间隔攒批写入，队列满时丢弃
type AsyncBatchWriter[T any] struct {
	id            string
	workers       int
	tl            *zap.Logger
	writer        BatchWriter[T]
	inputChan     chan T
	wg            sync.WaitGroup
	batchSize     int
	flushInterval time.Duration
	closeOnce     sync.Once
	mu            sync.RWMutex
	closed        bool
}

func NewAsyncBatchWriter[T any](tl *zap.Logger, writer BatchWriter[T], batchSize int, flushInterval time.Duration, id string, workers int) *AsyncBatchWriter[T] {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AsyncBatchWriter[T]{
		id:            id,
		workers:       workers,
		tl:            tl,
		writer:        writer,
		inputChan:     make(chan T, defaultQueueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (b *AsyncBatchWriter[T]) Start(ctx context.Context) {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.processItems(ctx)
	}
}

func (b *AsyncBatchWriter[T]) processItems(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	batch := make([]T, 0, b.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) > 0 {
			b.writeAndRecord(ctx, batch)
			batch = make([]T, 0, b.batchSize)
		}
	}

	for {
		select {
		case <-ctx.Done():
			// ctx 已取消，剩余数据用新的 ctx 写完
			finalCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			flush(finalCtx)
			cancel()
			return
		case item, ok := <-b.inputChan:
			if !ok {
				flush(ctx)
				return
			}
			batch = append(batch, item)
			if len(batch) >= b.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

// 封装写入操作并记录指标
func (b *AsyncBatchWriter[T]) writeAndRecord(ctx context.Context, batch []T) {
	startTime := time.Now()

	if err := b.writer.BWrite(ctx, batch); err != nil {
		b.tl.Warn("async batch write failed",
			zap.String("id", b.id),
			zap.Int("size", len(batch)),
			zap.Error(err))
	} else {
		monitor.AsyncWriterItemsWritten.WithLabelValues(b.id).Add(float64(len(batch)))
	}

	monitor.AsyncWriterFlushDuration.WithLabelValues(b.id).Observe(time.Since(startTime).Seconds())
}

// Submit 不阻塞，队列满或已关闭直接丢弃
func (b *AsyncBatchWriter[T]) Submit(item T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		monitor.AsyncWriterMessagesDropped.WithLabelValues(b.id).Inc()
		return
	}
	select {
	case b.inputChan <- item:
		monitor.AsyncWriterMessagesQueued.WithLabelValues(b.id).Inc()
	default:
		monitor.AsyncWriterMessagesDropped.WithLabelValues(b.id).Inc()
		b.tl.Warn("Batch input channel full, dropping item", zap.String("id", b.id))
	}
}

// Close 写完队列中剩余数据后关闭底层 writer
func (b *AsyncBatchWriter[T]) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.inputChan)
		b.mu.Unlock()
		b.wg.Wait()
		_ = b.writer.Close()
	})
}
