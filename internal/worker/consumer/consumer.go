package consumer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"web3-balance/internal/worker/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	readTimeout       = 2 * time.Second
	messagesPerSecond = 1000
)

// KafkaConsumer 接口
type KafkaConsumer interface {
	Run(ctx context.Context)
	Stop() error
	ID() string
}

// MessageHandler 解耦消息处理逻辑
type MessageHandler interface {
	HandleMessage(msg kafka.Message)
}

// Consumer 通用 kafka 消费循环
type Consumer struct {
	logger      *zap.Logger
	kafkaReader *kafka.Reader
	limiter     *rate.Limiter
	running     sync.WaitGroup
}

// NewConsumer 创建一个新的通用 Consumer 实例
func NewConsumer(conf config.KafkaConfig, logger *zap.Logger, topic string) *Consumer {
	return &Consumer{
		logger:      logger,
		kafkaReader: newKafkaReader(conf, topic),
		limiter:     rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond),
	}
}

// Start 启动消费者主循环
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) {
	c.running.Add(1)
	go c.run(ctx, handler)
}

func (c *Consumer) run(ctx context.Context, handler MessageHandler) {
	defer c.running.Done()
	for {
		// 等待令牌可用，ctx 取消时退出
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("closing Kafka consumer...")
			return
		}

		ctxWithTimeout, cancel := context.WithTimeout(ctx, readTimeout)
		msg, err := c.kafkaReader.ReadMessage(ctxWithTimeout)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.logger.Warn("closing Kafka consumer...")
				return
			case errors.Is(err, context.DeadlineExceeded):
				c.logger.Debug("Kafka idle", zap.String("topic", c.kafkaReader.Config().Topic))
			case errors.Is(err, io.EOF):
				// reader 已关闭
				return
			default:
				c.logger.Warn("Kafka read error", zap.Error(err))
			}
			continue
		}

		handler.HandleMessage(msg)
	}
}

// Stop 关闭 reader 并等待消费循环退出，返回后不会再回调 handler
func (c *Consumer) Stop() error {
	err := c.kafkaReader.Close()
	c.running.Wait()
	return err
}

// 创建 Kafka Reader
func newKafkaReader(conf config.KafkaConfig, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:                strings.Split(conf.Brokers, ","),
		Topic:                  topic,
		GroupID:                conf.GroupID,
		StartOffset:            kafka.LastOffset,
		CommitInterval:         5 * time.Second,
		QueueCapacity:          1000,
		MinBytes:               1,
		MaxBytes:               10e6,
		ReadBatchTimeout:       500 * time.Millisecond,
		PartitionWatchInterval: 5 * time.Second,
	})
}
