package handler

import (
	"context"
	"time"

	"web3-balance/internal/worker/balance"
	"web3-balance/internal/worker/model"
	"web3-balance/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceResolver balance.Resolver 的查询接口
type BalanceResolver interface {
	Resolve(ctx context.Context, opts balance.GetBalancesOptions) (*balance.Result, error)
}

// Submitter AsyncBatchWriter 的提交接口
type Submitter[T any] interface {
	Submit(item T)
}

type BalanceHandler struct {
	logger    *zap.Logger
	resolver  BalanceResolver
	results   Submitter[model.BalanceResultEvent]
	snapshots Submitter[model.BalanceSnapshot]
}

// NewBalanceHandler results / snapshots 为空时不发布
func NewBalanceHandler(logger *zap.Logger, resolver BalanceResolver, results Submitter[model.BalanceResultEvent], snapshots Submitter[model.BalanceSnapshot]) *BalanceHandler {
	return &BalanceHandler{
		logger:    logger,
		resolver:  resolver,
		results:   results,
		snapshots: snapshots,
	}
}

// HandleRequest 查询余额并发布结果；配置错误写入结果事件的 error 字段
func (h *BalanceHandler) HandleRequest(ctx context.Context, req model.BalanceRequestEvent) *model.BalanceResultEvent {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	ctx, span := logger.StartSpan(ctx, "balance_request", req.RequestID)
	defer span.End()
	tl := logger.NewLoggerWithTrace(ctx, h.logger).With(
		zap.String("request_id", req.RequestID),
		zap.String("source_type", req.SourceType))

	start := time.Now()
	opts := ToOptions(req)
	result := &model.BalanceResultEvent{
		RequestID:  req.RequestID,
		SourceType: req.SourceType,
		Balances:   map[string]string{},
	}

	res, err := h.resolver.Resolve(ctx, opts)
	if err != nil {
		tl.Warn("resolve balances failed", zap.Error(err))
		result.Error = err.Error()
	} else {
		result.Balances = res.Balances
		result.ChainScope = res.ChainScope
		h.publishSnapshots(req, res)
	}
	result.ResolvedAt = time.Now().UnixMilli()

	if h.results != nil {
		h.results.Submit(*result)
	}

	tl.Debug("balance request handled",
		zap.Int("addresses", len(req.Addresses)),
		zap.Int("resolved", len(result.Balances)),
		zap.Float64("cost", time.Since(start).Seconds()))
	return result
}

func (h *BalanceHandler) publishSnapshots(req model.BalanceRequestEvent, res *balance.Result) {
	if h.snapshots == nil {
		return
	}
	now := time.Now().UnixMilli()
	for _, f := range res.Fresh {
		h.snapshots.Submit(model.BalanceSnapshot{
			CacheKey:        f.CacheKey,
			SourceType:      req.SourceType,
			ChainScope:      res.ChainScope,
			ContractAddress: req.ContractAddress,
			TokenID:         req.TokenID,
			Address:         f.Address,
			Balance:         f.Balance,
			UpdatedAt:       now,
		})
	}
}

// ToOptions kafka 请求转换为查询参数
func ToOptions(req model.BalanceRequestEvent) balance.GetBalancesOptions {
	return balance.GetBalancesOptions{
		SourceType: balance.SourceType(req.SourceType),
		Addresses:  req.Addresses,
		SourceOptions: balance.SourceOptions{
			EvmChainID:      req.EvmChainID,
			CosmosChainID:   req.CosmosChainID,
			ChainNodeID:     req.ChainNodeID,
			ContractAddress: req.ContractAddress,
			TokenID:         req.TokenID,
		},
		CacheRefresh: req.CacheRefresh,
		BatchSize:    req.BatchSize,
	}
}
