package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]int
	closed  bool
}

func (w *memWriter) BWrite(_ context.Context, batch []int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]int(nil), batch...))
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestAsyncBatchWriter_FlushOnBatchSizeAndClose(t *testing.T) {
	w := &memWriter{}
	a := NewAsyncBatchWriter[int](zap.NewNop(), w, 3, time.Hour, "test_size", 1)
	a.Start(context.Background())

	for i := 0; i < 7; i++ {
		a.Submit(i)
	}
	a.Close()

	if w.total() != 7 {
		t.Fatalf("expected 7 items written, got %d", w.total())
	}
	if len(w.batches) != 3 || len(w.batches[0]) != 3 {
		t.Fatalf("unexpected batches %v", w.batches)
	}
	if !w.closed {
		t.Fatal("underlying writer must be closed")
	}
	a.Close()
}

func TestAsyncBatchWriter_FlushOnInterval(t *testing.T) {
	w := &memWriter{}
	a := NewAsyncBatchWriter[int](zap.NewNop(), w, 100, 20*time.Millisecond, "test_interval", 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	a.Submit(1)
	deadline := time.Now().Add(2 * time.Second)
	for w.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if w.total() != 1 {
		t.Fatal("expected interval flush")
	}
}

func TestAsyncBatchWriter_SubmitAfterCloseIsDropped(t *testing.T) {
	w := &memWriter{}
	b := NewAsyncBatchWriter[int](zap.NewNop(), w, 10, time.Hour, "test_closed", 1)
	b.Start(context.Background())
	b.Submit(1)
	b.Close()
	b.Submit(2)
	b.Close()

	if got := w.total(); got != 1 {
		t.Fatalf("written = %d, want 1", got)
	}
}
