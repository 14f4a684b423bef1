package balance

import (
	"context"

	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/model"
	"web3-balance/pkg/cosmos_client"
	"web3-balance/pkg/evm_client"

	"go.uber.org/zap"
)

// Provider 单一代币标准的余额查询
// addresses 已经过校验（Cosmos 已转换为链上前缀），返回的 key 与传入地址一致；
// failed 为请求失败的地址，error 仅用于配置错误
type Provider interface {
	Type() SourceType
	GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, opts SourceOptions, batchSize int) (Balances, []string, error)
}

type ProviderDeps struct {
	EVMPool  *evm_client.Pool
	Batcher  *evm_client.RPCBatcher
	Fetcher  *evm_client.BalanceFetcher
	Registry *FetcherRegistry
	LCD      *cosmos_client.LCDClient
	Config   config.BalanceConfig
	Logger   *zap.Logger
}

// NewProviders 按来源类型构建 provider
func NewProviders(deps ProviderDeps) map[SourceType]Provider {
	evm := &evmBase{
		pool:             deps.EVMPool,
		batcher:          deps.Batcher,
		fetcher:          deps.Fetcher,
		registry:         deps.Registry,
		fetcherChunkSize: deps.Config.FetcherBatchSize,
		timeout:          deps.Config.Timeout(),
		tl:               deps.Logger,
	}
	cosmos := &cosmosBase{
		lcd:            deps.LCD,
		maxConcurrency: deps.Config.MaxConcurrency,
		tl:             deps.Logger,
	}

	providers := []Provider{
		&ethNativeProvider{evmBase: evm},
		&balanceOfProvider{evmBase: evm, typ: ERC20, useFetcher: true},
		&balanceOfProvider{evmBase: evm, typ: ERC721},
		&erc1155Provider{evmBase: evm},
		&cosmosNativeProvider{cosmosBase: cosmos},
		&cw721Provider{cosmosBase: cosmos, pageLimit: deps.Config.CW721PageLimit},
	}

	m := make(map[SourceType]Provider, len(providers))
	for _, p := range providers {
		m[p.Type()] = p
	}
	return m
}
