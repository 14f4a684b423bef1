package balance

import (
	"context"
	"math/big"

	"web3-balance/internal/worker/model"
	"web3-balance/pkg/evm_client"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

type erc1155Provider struct {
	*evmBase
}

func (p *erc1155Provider) Type() SourceType {
	return ERC1155
}

func (p *erc1155Provider) GetBalances(ctx context.Context, node *model.ChainNode, addresses []string, opts SourceOptions, batchSize int) (Balances, []string, error) {
	tokenID, err := ParseTokenID(opts.TokenID)
	if err != nil {
		return nil, nil, err
	}
	if len(addresses) == 0 {
		return Balances{}, nil, nil
	}
	contract := common.HexToAddress(opts.ContractAddress)

	if len(addresses) == 1 {
		addr := addresses[0]
		out, failed := p.single(ctx, node, addr, func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
			return callBalance(ctx, c, contract, evm_client.ERC1155BalanceOfCallData(common.HexToAddress(addr), tokenID))
		})
		return out, failed, nil
	}

	out, failed := p.batch(ctx, node, addresses, func(address string) (string, []any) {
		return "eth_call", evm_client.EthCallParams(contract, evm_client.ERC1155BalanceOfCallData(common.HexToAddress(address), tokenID))
	}, batchSize)
	return out, failed, nil
}
