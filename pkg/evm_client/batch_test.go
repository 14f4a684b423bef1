package evm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"
	"web3-balance/pkg/httpclient"
	"web3-balance/pkg/rpctest"
)

func newTestBatcher() *RPCBatcher {
	http := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{Timeout: 2 * time.Second}, zap.NewNop())
	return NewRPCBatcher(http, zap.NewNop(), 4, nil)
}

func getBalanceBuilder(addr string) (string, []any) {
	return "eth_getBalance", []any{addr, "latest"}
}

func balanceNode(balances map[string]uint64) *rpctest.Node {
	return rpctest.NewNode(func(method string, params []json.RawMessage) (any, *rpctest.Error) {
		addr := rpctest.StringParam(params, 0)
		v, ok := balances[addr]
		if !ok {
			return nil, &rpctest.Error{Code: -32000, Message: "unknown account"}
		}
		return fmt.Sprintf("0x%x", v), nil
	})
}

func TestBatchByAddress_SplitsIntoBatches(t *testing.T) {
	balances := map[string]uint64{"a1": 1, "a2": 2, "a3": 3, "a4": 4, "a5": 5}
	node := balanceNode(balances)
	defer node.Close()

	addrs := []string{"a1", "a2", "a3", "a4", "a5"}
	res := newTestBatcher().BatchByAddress(context.Background(), node.URL, addrs, getBalanceBuilder, 2)

	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	if node.HTTPRequests() != 3 {
		t.Fatalf("expected 3 http requests, got %d", node.HTTPRequests())
	}
	for addr, want := range balances {
		got, err := DecodeQuantity(res.Results[addr])
		if err != nil {
			t.Fatalf("decode %s: %v", addr, err)
		}
		if got.Uint64() != want {
			t.Errorf("%s: got %s, want %d", addr, got, want)
		}
	}
}

func TestBatchByAddress_FailedBatchDoesNotAffectSiblings(t *testing.T) {
	node := balanceNode(map[string]uint64{"a1": 1, "a2": 2, "a3": 3, "a4": 4})
	defer node.Close()
	node.FailBatch = func(reqs []rpctest.Request) bool {
		for _, r := range reqs {
			if rpctest.StringParam(r.Params, 0) == "a3" {
				return true
			}
		}
		return false
	}

	res := newTestBatcher().BatchByAddress(context.Background(), node.URL, []string{"a1", "a2", "a3", "a4"}, getBalanceBuilder, 2)

	sort.Strings(res.Failed)
	if !slices.Equal(res.Failed, []string{"a3", "a4"}) {
		t.Fatalf("expected a3,a4 failed, got %v", res.Failed)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	if _, ok := res.Results["a1"]; !ok {
		t.Fatal("missing a1")
	}
}

func TestBatchByAddress_RPCErrorOnlyFailsThatAddress(t *testing.T) {
	node := balanceNode(map[string]uint64{"a1": 100})
	defer node.Close()

	res := newTestBatcher().BatchByAddress(context.Background(), node.URL, []string{"a1", "missing"}, getBalanceBuilder, 10)

	if !slices.Equal(res.Failed, []string{"missing"}) {
		t.Fatalf("expected only missing to fail, got %v", res.Failed)
	}
	got, err := DecodeQuantity(res.Results["a1"])
	if err != nil || got.Uint64() != 100 {
		t.Fatalf("a1: got %v, %v", got, err)
	}
}

func TestBatchCall_Empty(t *testing.T) {
	res := newTestBatcher().BatchCall(context.Background(), "http://127.0.0.1:0", nil, 10)
	if len(res.Results) != 0 || len(res.Failed) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestBatchCall_ObserverCalledPerBatch(t *testing.T) {
	node := balanceNode(map[string]uint64{"a1": 1, "a2": 2, "a3": 3})
	defer node.Close()

	var sizes []int
	http := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{Timeout: 2 * time.Second}, zap.NewNop())
	// 单并发保证回调顺序
	b := NewRPCBatcher(http, zap.NewNop(), 1, func(method string, size int, elapsed time.Duration, err error) {
		if method != "eth_getBalance" || err != nil {
			t.Errorf("unexpected observe %s %v", method, err)
		}
		sizes = append(sizes, size)
	})
	b.BatchByAddress(context.Background(), node.URL, []string{"a1", "a2", "a3"}, getBalanceBuilder, 2)

	if !slices.Equal(sizes, []int{2, 1}) {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
}
