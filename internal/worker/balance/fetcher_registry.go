package balance

import (
	"context"
	"fmt"
	"sync"

	"web3-balance/internal/worker/dao"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// FetcherRegistry EVM chain id -> balance fetcher 合约，配置文件与数据库合并，配置优先
type FetcherRegistry struct {
	mu        sync.RWMutex
	static    map[uint64]common.Address
	contracts map[uint64]common.Address
	dao       dao.FetcherContractDAO
	tl        *zap.Logger
}

// NewFetcherRegistry contractDAO 为空时只使用配置
func NewFetcherRegistry(static map[uint64]string, contractDAO dao.FetcherContractDAO, tl *zap.Logger) (*FetcherRegistry, error) {
	r := &FetcherRegistry{
		static:    make(map[uint64]common.Address, len(static)),
		contracts: make(map[uint64]common.Address, len(static)),
		dao:       contractDAO,
		tl:        tl,
	}
	for chainID, addr := range static {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid fetcher contract for chain %d: %q", chainID, addr)
		}
		r.static[chainID] = common.HexToAddress(addr)
		r.contracts[chainID] = r.static[chainID]
	}
	return r, nil
}

// Lookup 未注册的链返回 false，调用方回退到链下批量请求
func (r *FetcherRegistry) Lookup(chainID uint64) (common.Address, bool) {
	if r == nil {
		return common.Address{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.contracts[chainID]
	return addr, ok
}

// Reload 重新读取数据库中的合约
func (r *FetcherRegistry) Reload(ctx context.Context) error {
	if r.dao == nil {
		return nil
	}
	rows, err := r.dao.List(ctx)
	if err != nil {
		return fmt.Errorf("list fetcher contracts: %w", err)
	}

	merged := make(map[uint64]common.Address, len(rows)+len(r.static))
	for _, row := range rows {
		if !common.IsHexAddress(row.ContractAddress) {
			r.tl.Warn("skip invalid fetcher contract",
				zap.Uint64("chain_id", row.EthChainID),
				zap.String("contract", row.ContractAddress))
			continue
		}
		merged[row.EthChainID] = common.HexToAddress(row.ContractAddress)
	}
	for chainID, addr := range r.static {
		merged[chainID] = addr
	}

	r.mu.Lock()
	r.contracts = merged
	r.mu.Unlock()

	r.tl.Info("balance fetcher registry reloaded", zap.Int("chains", len(merged)))
	return nil
}

// Run 作为定时任务注册
func (r *FetcherRegistry) Run(ctx context.Context) error {
	return r.Reload(ctx)
}
