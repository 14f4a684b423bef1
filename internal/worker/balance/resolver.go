package balance

import (
	"context"
	"fmt"
	"strings"

	"web3-balance/internal/worker/cache"
	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/model"
	"web3-balance/internal/worker/monitor"
	"web3-balance/pkg/cosmos_client"
	"web3-balance/pkg/errreport"
	"web3-balance/pkg/logger"
	"web3-balance/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	tracerName        = "balance"
	maxReportedFailed = 20
)

// Result 余额结果，Fresh 为本次从链上获取并写入缓存的条目
type Result struct {
	Balances   Balances
	ChainScope string
	Fresh      []FreshBalance
}

type FreshBalance struct {
	CacheKey string
	Address  string // 实际查询的地址（EVM 小写，Cosmos 为链上前缀）
	Balance  string
}

// Resolver 余额查询入口：校验 -> 读缓存 -> 按来源分发 -> 写缓存
type Resolver struct {
	cfg       config.BalanceConfig
	cache     cache.Client
	nodes     dao.ChainNodeDAO
	providers map[SourceType]Provider
	reporter  errreport.Reporter
	tl        *zap.Logger
}

func NewResolver(cfg config.BalanceConfig, c cache.Client, nodes dao.ChainNodeDAO, providers map[SourceType]Provider, reporter errreport.Reporter, tl *zap.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg.WithDefaults(),
		cache:     c,
		nodes:     nodes,
		providers: providers,
		reporter:  reporter,
		tl:        tl,
	}
}

// GetBalances 单个地址失败只会从结果中缺失，配置错误（链节点不存在、类型不支持、参数非法）才返回 error
func (r *Resolver) GetBalances(ctx context.Context, opts GetBalancesOptions) (Balances, error) {
	res, err := r.Resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	return res.Balances, nil
}

func (r *Resolver) Resolve(ctx context.Context, opts GetBalancesOptions) (*Result, error) {
	ctx, span := logger.StartSpan(ctx, tracerName, "Resolver.Resolve",
		attribute.String("source_type", string(opts.SourceType)),
		attribute.Int("addresses", len(opts.Addresses)))
	defer span.End()

	res, err := r.resolve(ctx, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("resolved", len(res.Balances)))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, opts GetBalancesOptions) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	provider, ok := r.providers[opts.SourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSourceType, opts.SourceType)
	}

	node, err := r.chainNode(ctx, opts)
	if err != nil {
		return nil, err
	}
	scope, err := chainScope(opts.SourceType, node)
	if err != nil {
		return nil, err
	}

	tl := logger.WithTrace(ctx, r.tl).With(
		zap.String("source_type", string(opts.SourceType)),
		zap.String("chain_scope", scope))

	targets, origins := r.normalize(opts.SourceType, node, utils.DeduplicateStrings(opts.Addresses), tl)

	res := &Result{Balances: make(Balances, len(opts.Addresses)), ChainScope: scope}
	if len(targets) == 0 {
		return res, nil
	}

	so := opts.SourceOptions
	keyOf := func(target string) string {
		return utils.BalanceCacheKey(string(opts.SourceType), scope, so.ContractAddress, so.TokenID, target)
	}

	misses := targets
	if !opts.CacheRefresh {
		misses = r.readCache(ctx, targets, keyOf, origins, res.Balances, tl)
		monitor.BalanceResolved.WithLabelValues(string(opts.SourceType), "cache").Add(float64(len(res.Balances)))
	}
	if len(misses) == 0 {
		return res, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = r.cfg.BatchSize
	}
	fetched, failed, err := provider.GetBalances(ctx, node, misses, so, batchSize)
	if err != nil {
		return nil, err
	}

	fresh := make(map[string]string, len(fetched))
	for target, bal := range fetched {
		for _, orig := range origins[target] {
			res.Balances[orig] = bal
		}
		key := keyOf(target)
		fresh[key] = bal
		res.Fresh = append(res.Fresh, FreshBalance{CacheKey: key, Address: target, Balance: bal})
	}
	monitor.BalanceResolved.WithLabelValues(string(opts.SourceType), "rpc").Add(float64(len(fetched)))

	if len(failed) > 0 {
		monitor.BalanceFetchFailed.WithLabelValues(string(opts.SourceType)).Add(float64(len(failed)))
		r.reporter.Error("balance fetch failed", fmt.Errorf("%d of %d addresses failed", len(failed), len(misses)),
			zap.String("source_type", string(opts.SourceType)),
			zap.String("chain_scope", scope),
			zap.Strings("addresses", failed[:min(len(failed), maxReportedFailed)]))
	}

	if len(fresh) > 0 {
		if err := r.cache.SetKeys(ctx, r.cfg.CacheNamespace, fresh, r.cfg.TTL()); err != nil {
			r.reporter.Error("write balance cache failed", err,
				zap.String("source_type", string(opts.SourceType)),
				zap.Int("keys", len(fresh)))
		}
	}

	tl.Debug("balances resolved",
		zap.Int("requested", len(opts.Addresses)),
		zap.Int("resolved", len(res.Balances)),
		zap.Int("fetched", len(fetched)),
		zap.Int("failed", len(failed)))
	return res, nil
}

// readCache 命中的直接写入 out，返回未命中的地址；读缓存出错按未命中处理
func (r *Resolver) readCache(ctx context.Context, targets []string, keyOf func(string) string, origins map[string][]string, out Balances, tl *zap.Logger) []string {
	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = keyOf(t)
	}

	hits, err := r.cache.GetKeys(ctx, r.cfg.CacheNamespace, keys)
	if err != nil {
		monitor.BalanceCacheLookup.WithLabelValues("error").Add(float64(len(keys)))
		tl.Warn("read balance cache failed", zap.Error(err))
		return targets
	}

	misses := make([]string, 0, len(targets))
	for i, t := range targets {
		bal, ok := hits[keys[i]]
		if !ok {
			misses = append(misses, t)
			continue
		}
		for _, orig := range origins[t] {
			out[orig] = bal
		}
	}
	monitor.BalanceCacheLookup.WithLabelValues("hit").Add(float64(len(targets) - len(misses)))
	monitor.BalanceCacheLookup.WithLabelValues("miss").Add(float64(len(misses)))
	return misses
}

// normalize 返回实际查询的地址，以及查询地址 -> 调用方原始地址
// EVM 地址统一小写；Cosmos 地址转换为链上 bech32 前缀
func (r *Resolver) normalize(sourceType SourceType, node *model.ChainNode, addresses []string, tl *zap.Logger) ([]string, map[string][]string) {
	targets := make([]string, 0, len(addresses))
	origins := make(map[string][]string, len(addresses))

	for _, addr := range addresses {
		var target string
		if sourceType.IsEVM() {
			if !utils.IsValidEVMAddress(addr) {
				tl.Debug("skip invalid evm address", zap.String("address", addr))
				continue
			}
			target = strings.ToLower(addr)
		} else {
			encoded, err := cosmos_client.ConvertPrefix(addr, node.Bech32Prefix())
			if err != nil {
				tl.Debug("skip invalid bech32 address", zap.String("address", addr), zap.Error(err))
				continue
			}
			target = encoded
		}

		if _, seen := origins[target]; !seen {
			targets = append(targets, target)
		}
		origins[target] = append(origins[target], addr)
	}
	return targets, origins
}

func (r *Resolver) chainNode(ctx context.Context, opts GetBalancesOptions) (*model.ChainNode, error) {
	so := opts.SourceOptions
	switch {
	case so.ChainNodeID > 0:
		return r.nodes.GetByID(ctx, so.ChainNodeID)
	case opts.SourceType.IsEVM():
		return r.nodes.GetByEthChainID(ctx, so.EvmChainID)
	default:
		return r.nodes.GetByCosmosChainID(ctx, so.CosmosChainID)
	}
}

// chainScope 缓存 key 中的链标识，同时校验节点和来源类型属于同一链族
func chainScope(sourceType SourceType, node *model.ChainNode) (string, error) {
	if sourceType.IsEVM() {
		if node.EthChainID == nil {
			return "", fmt.Errorf("%w: chain node %d is not an evm node", ErrInvalidOptions, node.ID)
		}
		return utils.EvmChainScope(*node.EthChainID), nil
	}
	if node.CosmosChainID == nil || node.Bech32Prefix() == "" {
		return "", fmt.Errorf("%w: chain node %d is not a cosmos node", ErrInvalidOptions, node.ID)
	}
	return utils.CosmosChainScope(*node.CosmosChainID), nil
}
