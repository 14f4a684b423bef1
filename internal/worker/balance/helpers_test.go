package balance

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"web3-balance/internal/worker/cache"
	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/model"
	"web3-balance/pkg/errreport"
	"web3-balance/pkg/rpctest"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

const (
	testChainID       = uint64(1)
	testCosmosChainID = "osmosis-1"
	testDenom         = "uosmo"
	fetcherAddress    = "0xb1f8e55c7f64d203c1400b9d8555d050f94adf39"
	tokenAddress      = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

// memNodes 内存版 ChainNodeDAO
type memNodes struct {
	nodes []*model.ChainNode
}

func (m *memNodes) GetByID(_ context.Context, id int64) (*model.ChainNode, error) {
	for _, n := range m.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", dao.ErrChainNodeNotFound, id)
}

func (m *memNodes) GetByEthChainID(_ context.Context, chainID uint64) (*model.ChainNode, error) {
	for _, n := range m.nodes {
		if n.EthChainID != nil && *n.EthChainID == chainID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: eth chain %d", dao.ErrChainNodeNotFound, chainID)
}

func (m *memNodes) GetByCosmosChainID(_ context.Context, chainID string) (*model.ChainNode, error) {
	for _, n := range m.nodes {
		if n.CosmosChainID != nil && *n.CosmosChainID == chainID {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: cosmos chain %s", dao.ErrChainNodeNotFound, chainID)
}

func (m *memNodes) LoadAll(context.Context) (int, error) {
	return len(m.nodes), nil
}

func ptr[T any](v T) *T {
	return &v
}

func evmNode(url string) *model.ChainNode {
	return &model.ChainNode{ID: 1, URL: "http://unused.invalid", PrivateURL: ptr(url), EthChainID: ptr(testChainID), BalanceType: model.BalanceTypeEthereum}
}

func cosmosNode(url string) *model.ChainNode {
	return &model.ChainNode{ID: 2, URL: url, CosmosChainID: ptr(testCosmosChainID), Bech32: ptr("osmo"), CosmosDenom: ptr(testDenom), BalanceType: model.BalanceTypeCosmos}
}

type testEnv struct {
	resolver *Resolver
	cache    *cache.LocalCache
	cfg      config.BalanceConfig
}

func newTestEnv(t *testing.T, cfg config.BalanceConfig, nodes ...*model.ChainNode) *testEnv {
	t.Helper()
	c := cache.NewLocalCache()
	env := &testEnv{cache: c}
	env.resolver, env.cfg = buildResolver(t, cfg, c, errreport.New(errreport.Config{}, zap.NewNop()), nodes...)
	return env
}

func buildResolver(t *testing.T, cfg config.BalanceConfig, c cache.Client, reporter errreport.Reporter, nodes ...*model.ChainNode) (*Resolver, config.BalanceConfig) {
	t.Helper()
	if cfg.RPCRetries == nil {
		cfg.RPCRetries = ptr(0)
	}
	cfg = cfg.WithDefaults()

	comps, err := Build(context.Background(), cfg, c, &memNodes{nodes: nodes}, nil, reporter, zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(comps.Close)
	return comps.Resolver, cfg
}

// brokenCache 读写都失败的缓存
type brokenCache struct {
	mu     sync.Mutex
	reads  int
	writes int
}

var errCacheDown = errors.New("cache down")

func (b *brokenCache) GetKeys(context.Context, string, []string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	return nil, errCacheDown
}

func (b *brokenCache) SetKeys(context.Context, string, map[string]string, time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	return errCacheDown
}

// recordingReporter 记录上报的错误
type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Error(_ string, err error, _ ...zap.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) Close() {}

func (r *recordingReporter) reported(target error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range r.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e *testEnv) put(key, value string) {
	_ = e.cache.SetKeys(context.Background(), e.cfg.CacheNamespace, map[string]string{key: value}, e.cfg.TTL())
}

func (e *testEnv) get(key string) (string, bool) {
	got, _ := e.cache.GetKeys(context.Background(), e.cfg.CacheNamespace, []string{key})
	v, ok := got[key]
	return v, ok
}

func evmAddr(last byte) string {
	b := make([]byte, 20)
	b[0] = 0xaa
	b[19] = last
	return strings.ToLower(common.BytesToAddress(b).Hex())
}

// evmChain 假节点：余额按小写地址配置，fail 中的地址返回 RPC 错误
type evmChain struct {
	mu       sync.Mutex
	balances map[string]int64
	fail     map[string]bool
	fetcher  abi.Method
	methods  map[string]int
}

func newEVMChain(t *testing.T, balances map[string]int64) (*evmChain, *rpctest.Node) {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(`[{"inputs":[{"name":"users","type":"address[]"},{"name":"tokens","type":"address[]"}],"name":"balances","outputs":[{"name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"}]`))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	c := &evmChain{balances: balances, fail: map[string]bool{}, fetcher: parsed.Methods["balances"], methods: map[string]int{}}
	node := rpctest.NewNode(c.handle)
	t.Cleanup(node.Close)
	return c, node
}

func (c *evmChain) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.methods[method]
}

func (c *evmChain) lookup(addr common.Address) (int64, *rpctest.Error) {
	key := strings.ToLower(addr.Hex())
	if c.fail[key] {
		return 0, &rpctest.Error{Code: -32000, Message: "simulated failure"}
	}
	return c.balances[key], nil
}

func (c *evmChain) handle(method string, params []json.RawMessage) (any, *rpctest.Error) {
	c.mu.Lock()
	c.methods[method]++
	c.mu.Unlock()

	switch method {
	case "eth_getBalance":
		bal, rpcErr := c.lookup(common.HexToAddress(rpctest.StringParam(params, 0)))
		if rpcErr != nil {
			return nil, rpcErr
		}
		return hexutil.EncodeBig(big.NewInt(bal)), nil
	case "eth_call":
		to, data := rpctest.EthCall(params)
		if len(data) < 4 {
			return nil, &rpctest.Error{Code: -32602, Message: "short calldata"}
		}
		if to == fetcherAddress {
			return c.fetcherCall(data)
		}
		// balanceOf(address) / balanceOf(address,uint256)：第一个参数都是地址
		if len(data) < 36 {
			return nil, &rpctest.Error{Code: -32602, Message: "short calldata"}
		}
		bal, rpcErr := c.lookup(common.BytesToAddress(data[16:36]))
		if rpcErr != nil {
			return nil, rpcErr
		}
		return rpctest.Word(uint64(bal)), nil
	}
	return nil, &rpctest.Error{Code: -32601, Message: "method not found"}
}

func (c *evmChain) fetcherCall(data []byte) (any, *rpctest.Error) {
	args, err := c.fetcher.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &rpctest.Error{Code: -32602, Message: err.Error()}
	}
	users := args[0].([]common.Address)
	out := make([]*big.Int, 0, len(users))
	for _, u := range users {
		bal, rpcErr := c.lookup(u)
		if rpcErr != nil {
			return nil, rpcErr
		}
		out = append(out, big.NewInt(bal))
	}
	packed, err := c.fetcher.Outputs.Pack(out)
	if err != nil {
		return nil, &rpctest.Error{Code: -32603, Message: err.Error()}
	}
	return hexutil.Encode(packed), nil
}

// lcdServer 假 Cosmos LCD：bank 余额和 cw721 tokens 查询
type lcdServer struct {
	*httptest.Server
	mu       sync.Mutex
	balances map[string]string
	nfts     map[string]int
	queried  []string
}

func newLCDServer(t *testing.T, balances map[string]string, nfts map[string]int) *lcdServer {
	t.Helper()
	s := &lcdServer{balances: balances, nfts: nfts}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *lcdServer) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/cosmos/bank/v1beta1/balances/"):
		addr := strings.TrimSuffix(strings.TrimPrefix(path, "/cosmos/bank/v1beta1/balances/"), "/by_denom")
		s.record(addr)
		amount, ok := s.balances[addr]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":3,"message":"invalid address"}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"balance":{"denom":%q,"amount":%q}}`, r.URL.Query().Get("denom"), amount)
	case strings.Contains(path, "/smart/"):
		raw, err := base64.URLEncoding.DecodeString(path[strings.LastIndex(path, "/")+1:])
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var q struct {
			Tokens struct {
				Owner      string `json:"owner"`
				StartAfter string `json:"start_after"`
				Limit      int    `json:"limit"`
			} `json:"tokens"`
		}
		_ = json.Unmarshal(raw, &q)
		s.record(q.Tokens.Owner)
		start := 0
		if q.Tokens.StartAfter != "" {
			_, _ = fmt.Sscanf(q.Tokens.StartAfter, "token-%d", &start)
		}
		tokens := []string{}
		for i := start + 1; i <= s.nfts[q.Tokens.Owner] && len(tokens) < q.Tokens.Limit; i++ {
			tokens = append(tokens, fmt.Sprintf("token-%d", i))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"tokens": tokens}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *lcdServer) record(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queried = append(s.queried, addr)
}

func (s *lcdServer) queriedAddresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queried...)
}
