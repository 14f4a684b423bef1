package consumer

import (
	"context"
	"strconv"
	"sync"
	"time"

	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/model"
	"web3-balance/internal/worker/monitor"
	"web3-balance/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const workerBufferSize = 200

// RequestHandler handler.BalanceHandler 的处理接口
type RequestHandler interface {
	HandleRequest(ctx context.Context, req model.BalanceRequestEvent) *model.BalanceResultEvent
}

// BalanceRequestConsumer 消费余额请求，按 request id 哈希分发到固定 worker
type BalanceRequestConsumer struct {
	*Consumer
	id         string
	logger     *zap.Logger
	workerSize int
	buffers    []chan model.BalanceRequestEvent
	handler    RequestHandler
	wg         sync.WaitGroup
	stopOnce   sync.Once
	mu         sync.RWMutex
	closed     bool
}

func NewBalanceRequestConsumer(conf config.Config, logger *zap.Logger, handler RequestHandler) *BalanceRequestConsumer {
	bc := newBalanceRequestConsumer(conf.Worker.WorkerNum, logger, handler)
	bc.Consumer = NewConsumer(conf.Kafka, logger, conf.Kafka.TopicRequest)
	return bc
}

func newBalanceRequestConsumer(workerSize int, logger *zap.Logger, handler RequestHandler) *BalanceRequestConsumer {
	if workerSize <= 0 {
		workerSize = 1
	}
	buffers := make([]chan model.BalanceRequestEvent, workerSize)
	for i := 0; i < workerSize; i++ {
		buffers[i] = make(chan model.BalanceRequestEvent, workerBufferSize)
	}
	return &BalanceRequestConsumer{
		id:         "balance_request_consumer",
		logger:     logger,
		workerSize: workerSize,
		buffers:    buffers,
		handler:    handler,
	}
}

func (bc *BalanceRequestConsumer) Run(ctx context.Context) {
	bc.startWorkers(ctx)
	bc.Consumer.Start(ctx, bc)
}

func (bc *BalanceRequestConsumer) startWorkers(ctx context.Context) {
	for i := 0; i < bc.workerSize; i++ {
		bc.wg.Add(1)
		go func(idx int) {
			defer bc.wg.Done()
			workerID := strconv.Itoa(idx)
			for {
				select {
				case req, ok := <-bc.buffers[idx]:
					if !ok {
						return
					}
					startTime := time.Now()
					bc.handler.HandleRequest(ctx, req)
					monitor.KafkaWorkerProcessDuration.WithLabelValues(workerID).Observe(time.Since(startTime).Seconds())
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}
}

func (bc *BalanceRequestConsumer) HandleMessage(msg kafka.Message) {
	monitor.KafkaMessagesReceived.WithLabelValues(msg.Topic).Inc()
	var req model.BalanceRequestEvent
	if err := sonic.Unmarshal(msg.Value, &req); err != nil {
		bc.logger.Warn("JSON Parse Error", zap.String("consumerID", bc.id), zap.Error(err), zap.ByteString("raw", msg.Value))
		return
	}
	if req.RequestID == "" {
		req.RequestID = string(msg.Key)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	bc.dispatch(req)
}

func (bc *BalanceRequestConsumer) ID() string {
	return bc.id
}

func (bc *BalanceRequestConsumer) Stop() error {
	var err error
	bc.stopOnce.Do(func() {
		// 先停止 Kafka 消费并等待消费循环退出，再关闭 worker
		if bc.Consumer != nil {
			err = bc.Consumer.Stop()
		}
		bc.mu.Lock()
		bc.closed = true
		for i := 0; i < bc.workerSize; i++ {
			close(bc.buffers[i])
		}
		bc.mu.Unlock()
		bc.wg.Wait()
	})
	return err
}

// dispatch 同一个 request id 总是落到同一个 worker
func (bc *BalanceRequestConsumer) dispatch(req model.BalanceRequestEvent) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if bc.closed {
		bc.logger.Warn("consumer stopped, drop request", zap.String("consumerID", bc.id), zap.String("request_id", req.RequestID))
		return
	}

	idx := utils.GetHashBucket(req.RequestID, uint32(bc.workerSize))
	select {
	case bc.buffers[idx] <- req:
		monitor.KafkaWorkerMessagesDispatched.WithLabelValues(strconv.Itoa(int(idx))).Inc()
	default:
		bc.logger.Warn("buffers is full", zap.String("consumerID", bc.id), zap.Uint32("idx", idx), zap.String("request_id", req.RequestID))
	}
}
