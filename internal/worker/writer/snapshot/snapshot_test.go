package snapshot

import (
	"context"
	"errors"
	"testing"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/elasticsearch"
	"web3-balance/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type fakeMQ struct {
	fails int
	calls int
	msgs  []kafka.Message
}

func (f *fakeMQ) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.calls <= f.fails {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaResultWriter_RetriesAndKeys(t *testing.T) {
	mq := &fakeMQ{fails: 1}
	w := NewKafkaResultWriter(mq, zap.NewNop(), "balance_results")

	err := w.BWrite(context.Background(), []model.BalanceResultEvent{
		{RequestID: "req-1", SourceType: "erc20", Balances: map[string]string{"0xa": "100"}},
	})
	if err != nil {
		t.Fatalf("BWrite: %v", err)
	}
	if mq.calls != 2 || len(mq.msgs) != 1 {
		t.Fatalf("expected one retry, calls=%d msgs=%d", mq.calls, len(mq.msgs))
	}
	msg := mq.msgs[0]
	if string(msg.Key) != "req-1" || msg.Topic != "balance_results" {
		t.Fatalf("unexpected message %+v", msg)
	}
	var ev model.BalanceResultEvent
	if err := sonic.Unmarshal(msg.Value, &ev); err != nil || ev.Balances["0xa"] != "100" {
		t.Fatalf("unexpected payload %s (%v)", msg.Value, err)
	}
}

func TestKafkaResultWriter_GivesUp(t *testing.T) {
	mq := &fakeMQ{fails: RETRY_COUNT}
	w := NewKafkaResultWriter(mq, zap.NewNop(), "t")
	if err := w.BWrite(context.Background(), []model.BalanceResultEvent{{RequestID: "x"}}); err == nil {
		t.Fatal("expected error after retries")
	}
}

type fakeES struct {
	ops []elasticsearch.BulkOperation
}

func (f *fakeES) BulkWrite(_ context.Context, ops []elasticsearch.BulkOperation) error {
	f.ops = append(f.ops, ops...)
	return nil
}

func TestESSnapshotWriter_DedupesByDocID(t *testing.T) {
	es := &fakeES{}
	w := NewESSnapshotWriter(es, zap.NewNop(), "balance_snapshots")

	key := "erc20:evm_1:0xt:0xa"
	err := w.BWrite(context.Background(), []model.BalanceSnapshot{
		{CacheKey: key, Balance: "1"},
		{CacheKey: "erc20:evm_1:0xt:0xb", Balance: "5"},
		{CacheKey: key, Balance: "2"},
	})
	if err != nil {
		t.Fatalf("BWrite: %v", err)
	}
	if len(es.ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(es.ops))
	}
	for _, op := range es.ops {
		if op.Index != "balance_snapshots" || op.Action != "index" {
			t.Fatalf("unexpected op %+v", op)
		}
		if op.ID == utils.DocID(key) && op.Document.(model.BalanceSnapshot).Balance != "2" {
			t.Fatal("latest snapshot must win")
		}
	}
}
