package balance

import (
	"context"
	"math/big"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/evm_client"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

type ethNativeProvider struct {
	*evmBase
}

func (p *ethNativeProvider) Type() SourceType {
	return ETHNative
}

func (p *ethNativeProvider) GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, _ SourceOptions, batchSize int) (Balances, []string, error) {
	if len(addresses) == 0 {
		return Balances{}, nil, nil
	}
	if len(addresses) == 1 {
		addr := addresses[0]
		out, failed := p.single(ctx, node, addr, func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
			return c.BalanceAt(ctx, common.HexToAddress(addr), nil)
		})
		return out, failed, nil
	}

	if out, failed, ok := p.viaFetcher(ctx, node, addresses, evm_client.NativeToken, batchSize); ok {
		return out, failed, nil
	}

	out, failed := p.batch(ctx, node, addresses, func(address string) (string, []any) {
		return "eth_getBalance", []any{address, "latest"}
	}, batchSize)
	return out, failed, nil
}
