package errreport

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReporter_LogsWithoutRollbar(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := New(Config{}, zap.New(core))
	defer r.Close()

	r.Error("balance fetch failed", errors.New("boom"), zap.String("address", "0xabc"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["address"] != "0xabc" || ctx["error"] != "boom" {
		t.Fatalf("unexpected fields %v", ctx)
	}
}

func TestZapFieldsToMap(t *testing.T) {
	m := zapFieldsToMap([]zap.Field{zap.String("a", "b"), zap.Int("n", 3)})
	if m["a"] != "b" || m["n"] != int64(3) {
		t.Fatalf("unexpected map %v", m)
	}
}
