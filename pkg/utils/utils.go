package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// IsValidEVMAddress 格式校验 + EIP-55 校验（全大写/全小写不校验 checksum）
func IsValidEVMAddress(addr string) bool {
	if !common.IsHexAddress(addr) || !strings.HasPrefix(addr, "0x") {
		return false
	}
	body := addr[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(addr).Hex() == addr
}

// DeduplicateStrings 保序去重
func DeduplicateStrings(items []string) []string {
	res := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		res = append(res, item)
	}
	return res
}

// ParseHexQuantity 解析 JSON-RPC quantity/uint256 hex 字符串
func ParseHexQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("missing 0x prefix: %q", s)
	}
	hex := s[2:]
	if hex == "" {
		return nil, fmt.Errorf("empty result")
	}
	// eth_call 返回 32 字节，超出说明不是单个 uint256
	if len(hex) > 64 {
		hex = hex[:64]
	}
	n, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity: %q", s)
	}
	return n, nil
}

// NormalizeIntegerAmount 规范化十进制整数字符串（去掉前导零等），拒绝小数
func NormalizeIntegerAmount(amount string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return "", err
	}
	if !d.Equal(d.Truncate(0)) {
		return "", fmt.Errorf("amount is not an integer: %s", amount)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative amount: %s", amount)
	}
	return d.BigInt().String(), nil
}
