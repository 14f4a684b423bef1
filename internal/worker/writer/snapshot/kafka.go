package snapshot

import (
	"context"
	"time"

	"web3-balance/internal/worker/model"
	"web3-balance/internal/worker/writer"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	RETRY_COUNT  = 3
	writeTimeout = 2 * time.Second
)

// MessageWriter kafka.Writer 的写入接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaResultWriter 余额结果写入 kafka，key 为 request id
type KafkaResultWriter struct {
	mq    MessageWriter
	tl    *zap.Logger
	topic string
}

func NewKafkaResultWriter(mq MessageWriter, tl *zap.Logger, topic string) writer.ResultWriter {
	return &KafkaResultWriter{mq: mq, tl: tl, topic: topic}
}

func (w *KafkaResultWriter) BWrite(ctx context.Context, events []model.BalanceResultEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg, err := w.marshalToMsg(ev)
		if err != nil {
			w.tl.Warn("marshal balance result failed", zap.String("request_id", ev.RequestID), zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	newCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	// 重试机制
	var err error
	for attempt := 0; attempt < RETRY_COUNT; attempt++ {
		err = w.mq.WriteMessages(newCtx, msgs...)
		if err == nil {
			return nil
		}
	}
	w.tl.Warn("MQ write failed, exceeded the maximum number of retries", zap.Error(err))
	return err
}

func (w *KafkaResultWriter) Close() error {
	return nil
}

func (w *KafkaResultWriter) marshalToMsg(ev model.BalanceResultEvent) (kafka.Message, error) {
	jsonData, err := sonic.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: w.topic,
		Key:   []byte(ev.RequestID),
		Value: jsonData,
	}, nil
}
