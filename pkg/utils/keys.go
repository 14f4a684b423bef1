package utils

import (
	"fmt"
	"strings"
)

// BalanceCacheKey 余额缓存 key: {type}:{chain}[:{contract}][:{tokenId}]:{address}
// 合约地址统一小写，钱包地址由调用方先规范化
func BalanceCacheKey(sourceType, chainScope, contract, tokenID, address string) string {
	var b strings.Builder
	b.WriteString(sourceType)
	b.WriteByte(':')
	b.WriteString(chainScope)
	if contract != "" {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(contract))
	}
	if tokenID != "" {
		b.WriteByte(':')
		b.WriteString(tokenID)
	}
	b.WriteByte(':')
	b.WriteString(address)
	return b.String()
}

func NamespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

func EvmChainScope(chainID uint64) string {
	return fmt.Sprintf("evm_%d", chainID)
}

func CosmosChainScope(chainID string) string {
	return "cosmos_" + chainID
}

func ChainNodeKey(field string, value any) string {
	return fmt.Sprintf("web3_balance:chain_node:%s:%v", field, value)
}
