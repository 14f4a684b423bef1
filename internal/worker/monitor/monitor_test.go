package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"web3-balance/internal/worker/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestObserveRPCBatch(t *testing.T) {
	before := testutil.CollectAndCount(RPCBatchDuration)
	ObserveRPCBatch("eth_getBalance_test", 10, 20*time.Millisecond, nil)
	ObserveRPCBatch("eth_getBalance_test", 10, 20*time.Millisecond, errors.New("boom"))
	if got := testutil.CollectAndCount(RPCBatchDuration); got != before+2 {
		t.Fatalf("expected two new series, got %d -> %d", before, got)
	}
}

func TestDisabledMetricsServer(t *testing.T) {
	s := NewMetricsServer(config.MonitorConfig{}, zap.NewNop())
	s.Run()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestMetricsMux(t *testing.T) {
	srv := httptest.NewServer(newMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}
