package job

import (
	"context"
	"fmt"
	"strconv"

	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/model"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const watchlistConcurrency = 4

// RequestHandler handler.BalanceHandler 的处理接口
type RequestHandler interface {
	HandleRequest(ctx context.Context, req model.BalanceRequestEvent) *model.BalanceResultEvent
}

// WatchlistRefresh 定时强制刷新 watchlist 中地址的余额，保持缓存热度
type WatchlistRefresh struct {
	watchlists dao.WatchlistDAO
	handler    RequestHandler
	tl         *zap.Logger
}

func NewWatchlistRefresh(watchlists dao.WatchlistDAO, handler RequestHandler, logger *zap.Logger) *WatchlistRefresh {
	return &WatchlistRefresh{watchlists: watchlists, handler: handler, tl: logger}
}

func (j *WatchlistRefresh) Run(ctx context.Context) error {
	lists, err := j.watchlists.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list watchlists: %w", err)
	}

	worker := pool.New().WithMaxGoroutines(watchlistConcurrency)
	for _, list := range lists {
		list := list
		if len(list.Addresses) == 0 {
			continue
		}
		req := toRequest(list)
		worker.Go(func() {
			res := j.handler.HandleRequest(ctx, req)
			if res.Error != "" {
				j.tl.Warn("refresh watchlist failed", zap.Int64("watchlist_id", list.ID), zap.String("error", res.Error))
				return
			}
			j.tl.Debug("refresh watchlist", zap.Int64("watchlist_id", list.ID), zap.Int("resolved", len(res.Balances)))
		})
	}
	worker.Wait()
	return nil
}

func toRequest(list *model.BalanceWatchlist) model.BalanceRequestEvent {
	req := model.BalanceRequestEvent{
		RequestID:    "watchlist-" + strconv.FormatInt(list.ID, 10),
		SourceType:   list.SourceType,
		Addresses:    list.Addresses,
		CacheRefresh: true,
	}
	if list.ChainNodeID != nil {
		req.ChainNodeID = *list.ChainNodeID
	}
	if list.EthChainID != nil {
		req.EvmChainID = *list.EthChainID
	}
	if list.CosmosChainID != nil {
		req.CosmosChainID = *list.CosmosChainID
	}
	if list.ContractAddress != nil {
		req.ContractAddress = *list.ContractAddress
	}
	if list.TokenID != nil {
		req.TokenID = *list.TokenID
	}
	return req
}
