package balance

import (
	"context"
	"time"

	"web3-balance/internal/worker/cache"
	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/monitor"
	"web3-balance/pkg/cosmos_client"
	"web3-balance/pkg/errreport"
	"web3-balance/pkg/evm_client"
	"web3-balance/pkg/httpclient"

	"go.uber.org/zap"
)

const (
	userAgent       = "web3-balance/1.0"
	rpcRetryWait    = 200 * time.Millisecond
	rpcRetryMaxWait = 2 * time.Second
)

// Components 组装好的 resolver 及需要关闭的底层连接
type Components struct {
	Resolver *Resolver
	Registry *FetcherRegistry

	http *httpclient.HTTPClient
	pool *evm_client.Pool
}

// Build contracts 为空时只使用配置中的 fetcher 合约
func Build(ctx context.Context, cfg config.BalanceConfig, c cache.Client, nodes dao.ChainNodeDAO, contracts dao.FetcherContractDAO, reporter errreport.Reporter, tl *zap.Logger) (*Components, error) {
	cfg = cfg.WithDefaults()

	static, err := cfg.FetcherContractMap()
	if err != nil {
		return nil, err
	}
	registry, err := NewFetcherRegistry(static, contracts, tl)
	if err != nil {
		return nil, err
	}
	if err := registry.Reload(ctx); err != nil {
		// 数据库不可用时先用配置，定时任务会再次加载
		tl.Warn("load fetcher contracts failed, using config only", zap.Error(err))
	}

	hc := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:       cfg.Timeout(),
		RateLimit:     cfg.RPCRateLimit,
		MaxRetries:    cfg.Retries(),
		RetryWaitTime: rpcRetryWait,
		RetryMaxWait:  rpcRetryMaxWait,
		UserAgent:     userAgent,
	}, tl)
	pool := evm_client.NewPool(hc.Transport())
	batcher := evm_client.NewRPCBatcher(hc, tl, cfg.MaxConcurrency, monitor.ObserveRPCBatch)

	providers := NewProviders(ProviderDeps{
		EVMPool:  pool,
		Batcher:  batcher,
		Fetcher:  evm_client.NewBalanceFetcher(batcher, tl),
		Registry: registry,
		LCD:      cosmos_client.NewLCDClient(hc, tl),
		Config:   cfg,
		Logger:   tl,
	})
	return &Components{
		Resolver: NewResolver(cfg, c, nodes, providers, reporter, tl),
		Registry: registry,
		http:     hc,
		pool:     pool,
	}, nil
}

func (c *Components) Close() {
	c.pool.Close()
	_ = c.http.Close()
}
