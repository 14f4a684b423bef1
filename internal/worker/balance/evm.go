package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/evm_client"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// evmBase EVM provider 共用的单地址直连、链下批量和链上 fetcher 三种查询方式
type evmBase struct {
	pool             *evm_client.Pool
	batcher          *evm_client.RPCBatcher
	fetcher          *evm_client.BalanceFetcher
	registry         *FetcherRegistry
	fetcherChunkSize int
	timeout          time.Duration
	tl               *zap.Logger
}

func (b *evmBase) client(ctx context.Context, node *model.ChainNode) (*ethclient.Client, error) {
	return b.pool.Get(ctx, node.RPCURL())
}

// single 单地址直连，失败计入 failed
func (b *evmBase) single(ctx context.Context, node *model.ChainNode, address string, call func(ctx context.Context, c *ethclient.Client) (*big.Int, error)) (Balances, []string) {
	c, err := b.client(ctx, node)
	if err != nil {
		b.tl.Warn("evm client unavailable", zap.Int64("chain_node_id", node.ID), zap.Error(err))
		return Balances{}, []string{address}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	bal, err := call(callCtx, c)
	if err != nil {
		b.tl.Warn("evm balance call failed",
			zap.Int64("chain_node_id", node.ID),
			zap.String("address", address),
			zap.Error(err))
		return Balances{}, []string{address}
	}
	return Balances{address: bal.String()}, nil
}

// batch 链下 JSON-RPC 批量，结果为 hex quantity / uint256
func (b *evmBase) batch(ctx context.Context, node *model.ChainNode, addresses []string, build func(address string) (string, []any), batchSize int) (Balances, []string) {
	res := b.batcher.BatchByAddress(ctx, node.RPCURL(), addresses, build, batchSize)
	out := make(Balances, len(res.Results))
	for addr, raw := range res.Results {
		bal, err := decodeResult(raw)
		if err != nil {
			b.tl.Debug("decode balance failed", zap.String("address", addr), zap.Error(err))
			continue
		}
		out[addr] = bal.String()
	}
	return out, res.Failed
}

// viaFetcher 链上 balance fetcher 合约；该链没有注册合约时返回 false
func (b *evmBase) viaFetcher(ctx context.Context, node *model.ChainNode, addresses []string, token common.Address, batchSize int) (Balances, []string, bool) {
	if b.fetcher == nil || node.EthChainID == nil {
		return nil, nil, false
	}
	contract, ok := b.registry.Lookup(*node.EthChainID)
	if !ok {
		return nil, nil, false
	}

	balances, failed := b.fetcher.FetchBalances(ctx, node.RPCURL(), contract, addresses, token, b.fetcherChunkSize, batchSize)
	out := make(Balances, len(balances))
	for addr, bal := range balances {
		out[addr] = bal.String()
	}
	return out, failed, true
}

func decodeResult(raw json.RawMessage) (*big.Int, error) {
	bal, err := evm_client.DecodeQuantity(raw)
	if err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return bal, nil
}
