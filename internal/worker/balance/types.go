package balance

import (
	"errors"
	"fmt"
	"math/big"

	"web3-balance/internal/worker/dao"
	"web3-balance/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// SourceType 余额来源（代币标准）
type SourceType string

const (
	ETHNative    SourceType = "eth_native"
	ERC20        SourceType = "erc20"
	ERC721       SourceType = "erc721"
	ERC1155      SourceType = "erc1155"
	CosmosNative SourceType = "cosmos_native"
	CW721        SourceType = "cw721"
)

var (
	ErrChainNodeNotFound     = dao.ErrChainNodeNotFound
	ErrUnsupportedSourceType = errors.New("unsupported balance source type")
	ErrInvalidOptions        = errors.New("invalid balance options")
)

func (t SourceType) IsEVM() bool {
	switch t {
	case ETHNative, ERC20, ERC721, ERC1155:
		return true
	}
	return false
}

func (t SourceType) IsCosmos() bool {
	return t == CosmosNative || t == CW721
}

func (t SourceType) RequiresContract() bool {
	return t != ETHNative && t != CosmosNative
}

// SourceOptions 链和合约参数，ChainNodeID 优先于 chain id
type SourceOptions struct {
	EvmChainID      uint64 `json:"evmChainId,omitempty"`
	CosmosChainID   string `json:"cosmosChainId,omitempty" validate:"omitempty,max=64"`
	ChainNodeID     int64  `json:"chainNodeId,omitempty" validate:"gte=0"`
	ContractAddress string `json:"contractAddress,omitempty" validate:"omitempty,max=128"`
	TokenID         string `json:"tokenId,omitempty" validate:"omitempty,number,max=78"`
}

type GetBalancesOptions struct {
	SourceType    SourceType    `json:"balanceSourceType" validate:"required"`
	Addresses     []string      `json:"addresses"`
	SourceOptions SourceOptions `json:"sourceOptions"`
	CacheRefresh  bool          `json:"cacheRefresh,omitempty"`
	BatchSize     int           `json:"batchSize,omitempty" validate:"gte=0,lte=5000"`
}

// Balances 地址 -> 十进制整数余额
type Balances map[string]string

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 配置类错误直接返回，单个地址的问题不在这里处理
func (o GetBalancesOptions) Validate() error {
	if !o.SourceType.IsEVM() && !o.SourceType.IsCosmos() {
		return fmt.Errorf("%w: %q", ErrUnsupportedSourceType, o.SourceType)
	}
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	so := o.SourceOptions
	switch {
	case o.SourceType.IsEVM() && so.EvmChainID == 0 && so.ChainNodeID == 0:
		return fmt.Errorf("%w: %s requires evmChainId or chainNodeId", ErrInvalidOptions, o.SourceType)
	case o.SourceType.IsCosmos() && so.CosmosChainID == "" && so.ChainNodeID == 0:
		return fmt.Errorf("%w: %s requires cosmosChainId or chainNodeId", ErrInvalidOptions, o.SourceType)
	}

	if o.SourceType.RequiresContract() {
		if so.ContractAddress == "" {
			return fmt.Errorf("%w: %s requires contractAddress", ErrInvalidOptions, o.SourceType)
		}
		if o.SourceType.IsEVM() && !utils.IsValidEVMAddress(so.ContractAddress) {
			return fmt.Errorf("%w: invalid contract address %q", ErrInvalidOptions, so.ContractAddress)
		}
	}
	if o.SourceType == ERC1155 {
		if so.TokenID == "" {
			return fmt.Errorf("%w: erc1155 requires tokenId", ErrInvalidOptions)
		}
		if _, err := ParseTokenID(so.TokenID); err != nil {
			return err
		}
	}
	return nil
}

// ParseTokenID 十进制 token id，必须落在 uint256 范围内
func ParseTokenID(tokenID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok || id.Sign() < 0 || id.BitLen() > 256 {
		return nil, fmt.Errorf("%w: invalid tokenId %q", ErrInvalidOptions, tokenID)
	}
	return id, nil
}
