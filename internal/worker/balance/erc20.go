package balance

import (
	"context"
	"math/big"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/evm_client"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// balanceOfProvider ERC20 / ERC721 都是 balanceOf(address)，只有 ERC20 走 fetcher 合约
type balanceOfProvider struct {
	*evmBase
	typ        SourceType
	useFetcher bool
}

func (p *balanceOfProvider) Type() SourceType {
	return p.typ
}

func (p *balanceOfProvider) GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, opts SourceOptions, batchSize int) (Balances, []string, error) {
	if len(addresses) == 0 {
		return Balances{}, nil, nil
	}
	contract := common.HexToAddress(opts.ContractAddress)

	if len(addresses) == 1 {
		addr := addresses[0]
		out, failed := p.single(ctx, node, addr, func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
			return callBalance(ctx, c, contract, evm_client.BalanceOfCallData(common.HexToAddress(addr)))
		})
		return out, failed, nil
	}

	if p.useFetcher {
		if out, failed, ok := p.viaFetcher(ctx, node, addresses, contract, batchSize); ok {
			return out, failed, nil
		}
	}

	out, failed := p.batch(ctx, node, addresses, func(address string) (string, []any) {
		return "eth_call", evm_client.EthCallParams(contract, evm_client.BalanceOfCallData(common.HexToAddress(address)))
	}, batchSize)
	return out, failed, nil
}

func callBalance(ctx context.Context, c *ethclient.Client, contract common.Address, data []byte) (*big.Int, error) {
	result, err := c.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return evm_client.ParseBalanceResult(result)
}
