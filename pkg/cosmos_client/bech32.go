package cosmos_client

import (
	"fmt"

	"github.com/cosmos/btcutil/bech32"
)

// ConvertPrefix 解码 bech32 地址后用目标链前缀重新编码
func ConvertPrefix(address, prefix string) (string, error) {
	_, data, err := bech32.DecodeToBase256(address)
	if err != nil {
		return "", fmt.Errorf("decode bech32 %q: %w", address, err)
	}
	encoded, err := bech32.EncodeFromBase256(prefix, data)
	if err != nil {
		return "", fmt.Errorf("encode bech32 with prefix %q: %w", prefix, err)
	}
	return encoded, nil
}

// EncodeAddress 用给定前缀编码原始地址字节
func EncodeAddress(prefix string, raw []byte) (string, error) {
	return bech32.EncodeFromBase256(prefix, raw)
}
