// Package rpctest 提供测试用的假 EVM JSON-RPC 节点，同时支持单个请求和批量数组请求
package rpctest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Handler 返回 result 或 error
type Handler func(method string, params []json.RawMessage) (any, *Error)

type Node struct {
	*httptest.Server
	handler Handler
	// FailBatch 返回 true 时整个 HTTP 请求返回 500
	FailBatch func(reqs []Request) bool
	requests  atomic.Int32
	calls     atomic.Int32
}

func NewNode(h Handler) *Node {
	n := &Node{handler: h}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// HTTPRequests HTTP 请求数
func (n *Node) HTTPRequests() int {
	return int(n.requests.Load())
}

// Calls JSON-RPC 调用数（批量请求按元素计）
func (n *Node) Calls() int {
	return int(n.calls.Load())
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	n.requests.Add(1)

	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	raw := bytes.TrimSpace(body.Bytes())
	batch := len(raw) > 0 && raw[0] == '['

	var reqs []Request
	if batch {
		if err := json.Unmarshal(raw, &reqs); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	} else {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		reqs = []Request{req}
	}
	n.calls.Add(int32(len(reqs)))

	if n.FailBatch != nil && n.FailBatch(reqs) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resps := make([]response, 0, len(reqs))
	for _, req := range reqs {
		result, rpcErr := n.handler(req.Method, req.Params)
		resps = append(resps, response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr})
	}

	w.Header().Set("Content-Type", "application/json")
	if batch {
		_ = json.NewEncoder(w).Encode(resps)
		return
	}
	_ = json.NewEncoder(w).Encode(resps[0])
}

// StringParam 解析第 i 个字符串参数
func StringParam(params []json.RawMessage, i int) string {
	if i >= len(params) {
		return ""
	}
	var s string
	_ = json.Unmarshal(params[i], &s)
	return s
}

// EthCall 解析 eth_call 的 to 和 calldata（兼容 data / input 字段）
func EthCall(params []json.RawMessage) (string, []byte) {
	if len(params) == 0 {
		return "", nil
	}
	var msg struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Input string `json:"input"`
	}
	_ = json.Unmarshal(params[0], &msg)
	input := msg.Input
	if input == "" {
		input = msg.Data
	}
	data, _ := hexutil.Decode(input)
	return strings.ToLower(msg.To), data
}

// Word 32 字节左补零编码的 uint64，作为 eth_call 返回值
func Word(v uint64) string {
	b := make([]byte, 32)
	for i := 31; i >= 24; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return hexutil.Encode(b)
}
