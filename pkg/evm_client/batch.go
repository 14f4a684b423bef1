package evm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"web3-balance/pkg/httpclient"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize      = 500
	defaultMaxConcurrency = 8
)

// Call 一次 JSON-RPC 调用，Key 用于回填结果（通常是钱包地址）
type Call struct {
	Key    string
	Method string
	Params []any
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// BatchResult 成功的结果按 Key 回填；失败的 Key 单独返回，不影响其他批次
type BatchResult struct {
	Results map[string]json.RawMessage
	Failed  []string
}

// BatchObserver 每个 HTTP 批次完成后回调，用于指标
type BatchObserver func(method string, size int, elapsed time.Duration, err error)

// RPCBatcher 链下 JSON-RPC 批量请求：N 个调用合并为一个 HTTP 数组请求，各批次并发
type RPCBatcher struct {
	http           *httpclient.HTTPClient
	tl             *zap.Logger
	maxConcurrency int
	observer       BatchObserver
}

func NewRPCBatcher(http *httpclient.HTTPClient, tl *zap.Logger, maxConcurrency int, observer BatchObserver) *RPCBatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &RPCBatcher{
		http:           http,
		tl:             tl,
		maxConcurrency: maxConcurrency,
		observer:       observer,
	}
}

// BatchByAddress 每个地址构造一个调用后批量执行
func (b *RPCBatcher) BatchByAddress(ctx context.Context, url string, addresses []string, build func(address string) (string, []any), batchSize int) BatchResult {
	calls := make([]Call, 0, len(addresses))
	for _, addr := range addresses {
		method, params := build(addr)
		calls = append(calls, Call{Key: addr, Method: method, Params: params})
	}
	return b.BatchCall(ctx, url, calls, batchSize)
}

// BatchCall 按 batchSize 切分，所有批次并发发出，等待全部完成
func (b *RPCBatcher) BatchCall(ctx context.Context, url string, calls []Call, batchSize int) BatchResult {
	res := BatchResult{Results: make(map[string]json.RawMessage, len(calls))}
	if len(calls) == 0 {
		return res
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	p := pool.NewWithResults[BatchResult]().WithMaxGoroutines(b.maxConcurrency)
	for i := 0; i < len(calls); i += batchSize {
		batch := calls[i:min(i+batchSize, len(calls))]
		p.Go(func() BatchResult {
			return b.doBatch(ctx, url, batch)
		})
	}

	for _, part := range p.Wait() {
		for k, v := range part.Results {
			res.Results[k] = v
		}
		res.Failed = append(res.Failed, part.Failed...)
	}
	return res
}

func (b *RPCBatcher) doBatch(ctx context.Context, url string, batch []Call) BatchResult {
	res := BatchResult{Results: make(map[string]json.RawMessage, len(batch))}

	reqs := make([]rpcRequest, len(batch))
	for i, c := range batch {
		reqs[i] = rpcRequest{JSONRPC: "2.0", ID: i + 1, Method: c.Method, Params: c.Params}
	}

	start := time.Now()
	var resps []rpcResponse
	err := b.http.PostJSON(ctx, url, reqs, &resps)
	if b.observer != nil {
		b.observer(batch[0].Method, len(batch), time.Since(start), err)
	}
	if err != nil {
		b.tl.Warn("rpc batch request failed",
			zap.String("method", batch[0].Method),
			zap.Int("size", len(batch)),
			zap.Error(err))
		for _, c := range batch {
			res.Failed = append(res.Failed, c.Key)
		}
		return res
	}

	byID := make(map[int]rpcResponse, len(resps))
	for _, r := range resps {
		id, err := parseID(r.ID)
		if err != nil {
			continue
		}
		byID[id] = r
	}

	for i, c := range batch {
		r, ok := byID[i+1]
		switch {
		case !ok:
			b.tl.Debug("rpc response missing", zap.String("key", c.Key))
			res.Failed = append(res.Failed, c.Key)
		case r.Error != nil:
			b.tl.Debug("rpc call error", zap.String("key", c.Key), zap.Error(r.Error))
			res.Failed = append(res.Failed, c.Key)
		case len(r.Result) == 0 || string(r.Result) == "null":
			res.Failed = append(res.Failed, c.Key)
		default:
			res.Results[c.Key] = r.Result
		}
	}
	return res
}

func parseID(raw json.RawMessage) (int, error) {
	return strconv.Atoi(strings.Trim(string(raw), `" `))
}
