package balance

import (
	"context"
	"fmt"
	"strconv"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/cosmos_client"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// cosmosBase LCD 不支持批量，按地址并发请求
type cosmosBase struct {
	lcd            *cosmos_client.LCDClient
	maxConcurrency int
	tl             *zap.Logger
}

type addressResult struct {
	address string
	balance string
	err     error
}

func (b *cosmosBase) each(ctx context.Context, addresses []string, fetch func(ctx context.Context, address string) (string, error)) (Balances, []string) {
	p := pool.NewWithResults[addressResult]().WithMaxGoroutines(max(b.maxConcurrency, 1))
	for _, addr := range addresses {
		addr := addr
		p.Go(func() addressResult {
			bal, err := fetch(ctx, addr)
			return addressResult{address: addr, balance: bal, err: err}
		})
	}

	out := make(Balances, len(addresses))
	var failed []string
	for _, r := range p.Wait() {
		if r.err != nil {
			b.tl.Warn("cosmos balance query failed", zap.String("address", r.address), zap.Error(r.err))
			failed = append(failed, r.address)
			continue
		}
		out[r.address] = r.balance
	}
	return out, failed
}

type cosmosNativeProvider struct {
	*cosmosBase
}

func (p *cosmosNativeProvider) Type() SourceType {
	return CosmosNative
}

func (p *cosmosNativeProvider) GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, _ SourceOptions, _ int) (Balances, []string, error) {
	denom := node.Denom()
	if denom == "" {
		return nil, nil, fmt.Errorf("%w: chain node %d has no cosmos_denom", ErrInvalidOptions, node.ID)
	}
	out, failed := p.each(ctx, addresses, func(ctx context.Context, address string) (string, error) {
		return p.lcd.BankBalance(ctx, node.RPCURL(), address, denom)
	})
	return out, failed, nil
}

// cw721Provider 余额为 owner 持有的 token 数量
type cw721Provider struct {
	*cosmosBase
	pageLimit int
}

func (p *cw721Provider) Type() SourceType {
	return CW721
}

func (p *cw721Provider) GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, opts SourceOptions, _ int) (Balances, []string, error) {
	out, failed := p.each(ctx, addresses, func(ctx context.Context, address string) (string, error) {
		n, err := p.lcd.CW721TokenCount(ctx, node.RPCURL(), opts.ContractAddress, address, p.pageLimit)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	})
	return out, failed, nil
}
