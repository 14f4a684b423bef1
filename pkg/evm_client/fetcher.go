package evm_client

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// DefaultFetcherChunkSize 单次合约调用最多查询的地址数
const DefaultFetcherChunkSize = 500

// NativeToken 零地址在 balance fetcher 合约中表示原生币
var NativeToken = common.Address{}

const balanceFetcherABI = `[{"constant":true,"inputs":[{"name":"users","type":"address[]"},{"name":"tokens","type":"address[]"}],"name":"balances","outputs":[{"name":"","type":"uint256[]"}],"payable":false,"stateMutability":"view","type":"function"}]`

// BalanceFetcher 链上批量查询：balances(users, tokens) 一次 eth_call 返回 users×tokens 个余额
type BalanceFetcher struct {
	batcher *RPCBatcher
	tl      *zap.Logger
	abi     abi.ABI
}

func NewBalanceFetcher(batcher *RPCBatcher, tl *zap.Logger) *BalanceFetcher {
	parsed, err := abi.JSON(strings.NewReader(balanceFetcherABI))
	if err != nil {
		panic(fmt.Sprintf("parse balance fetcher abi: %v", err))
	}
	return &BalanceFetcher{batcher: batcher, tl: tl, abi: parsed}
}

// FetchBalances 地址按 chunkSize 切成多次合约调用，多次调用再按 rpcBatchSize 合并成 JSON-RPC 批量请求
func (f *BalanceFetcher) FetchBalances(ctx context.Context, url string, contract common.Address, users []string, token common.Address, chunkSize, rpcBatchSize int) (map[string]*big.Int, []string) {
	out := make(map[string]*big.Int, len(users))
	if len(users) == 0 {
		return out, nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultFetcherChunkSize
	}

	chunks := make(map[string][]string)
	calls := make([]Call, 0, len(users)/chunkSize+1)
	var failed []string
	for i := 0; i < len(users); i += chunkSize {
		chunk := users[i:min(i+chunkSize, len(users))]
		input, err := f.PackBalances(chunk, token)
		if err != nil {
			f.tl.Warn("pack balance fetcher call failed", zap.Error(err))
			failed = append(failed, chunk...)
			continue
		}
		key := fmt.Sprintf("chunk_%d", i/chunkSize)
		chunks[key] = chunk
		calls = append(calls, Call{Key: key, Method: "eth_call", Params: EthCallParams(contract, input)})
	}

	res := f.batcher.BatchCall(ctx, url, calls, rpcBatchSize)
	for _, key := range res.Failed {
		failed = append(failed, chunks[key]...)
	}

	for key, raw := range res.Results {
		chunk := chunks[key]
		balances, err := f.decode(raw)
		if err != nil || len(balances) != len(chunk) {
			f.tl.Warn("decode balance fetcher result failed",
				zap.String("chunk", key),
				zap.Int("expected", len(chunk)),
				zap.Int("got", len(balances)),
				zap.Error(err))
			failed = append(failed, chunk...)
			continue
		}
		for i, user := range chunk {
			out[user] = balances[i]
		}
	}
	return out, failed
}

// PackBalances 编码 balances(address[],address[]) 调用数据
func (f *BalanceFetcher) PackBalances(users []string, token common.Address) ([]byte, error) {
	addrs := make([]common.Address, len(users))
	for i, u := range users {
		addrs[i] = common.HexToAddress(u)
	}
	return f.abi.Pack("balances", addrs, []common.Address{token})
}

func (f *BalanceFetcher) decode(raw []byte) ([]*big.Int, error) {
	var hexData string
	if err := sonic.Unmarshal(raw, &hexData); err != nil {
		return nil, err
	}
	data, err := hexutil.Decode(hexData)
	if err != nil {
		return nil, err
	}
	values, err := f.abi.Unpack("balances", data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected output count: %d", len(values))
	}
	balances, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", values[0])
	}
	return balances, nil
}
