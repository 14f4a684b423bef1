package evm_client

import (
	"encoding/json"
	"fmt"
	"math/big"

	"web3-balance/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	// balanceOf(address) ERC20 / ERC721
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	// balanceOf(address,uint256) ERC1155
	balanceOf1155Selector = []byte{0x00, 0xfd, 0xd5, 0x8e}
)

// BalanceOfCallData 构建 balanceOf(address) 调用数据
func BalanceOfCallData(walletAddress common.Address) []byte {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, balanceOfSelector...)
	return append(callData, common.LeftPadBytes(walletAddress.Bytes(), 32)...)
}

// ERC1155BalanceOfCallData 构建 balanceOf(address,uint256) 调用数据
func ERC1155BalanceOfCallData(walletAddress common.Address, tokenID *big.Int) []byte {
	callData := make([]byte, 0, 4+64)
	callData = append(callData, balanceOf1155Selector...)
	callData = append(callData, common.LeftPadBytes(walletAddress.Bytes(), 32)...)
	return append(callData, common.LeftPadBytes(tokenID.Bytes(), 32)...)
}

// ParseBalanceResult 解析合约调用的 uint256 返回值
func ParseBalanceResult(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid balance data length: %d", len(data))
	}
	return new(big.Int).SetBytes(data[:32]), nil
}

// EthCallParams eth_call 参数（latest 区块）
func EthCallParams(to common.Address, data []byte) []any {
	return []any{
		map[string]string{
			"to":   to.Hex(),
			"data": hexutil.Encode(data),
		},
		"latest",
	}
}

// DecodeQuantity 解析 JSON-RPC 结果中的 hex 字符串
func DecodeQuantity(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode rpc result: %w", err)
	}
	return utils.ParseHexQuantity(s)
}
