package utils

import (
	"reflect"
	"testing"
)

func TestIsValidEVMAddress(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", true},
		// checksum 错误
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", false},
		{"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA", false},
		{"0xZZZeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsValidEVMAddress(c.addr); got != c.want {
			t.Errorf("IsValidEVMAddress(%q) = %v, want %v", c.addr, got, c.want)
		}
	}
}

func TestDeduplicateStrings(t *testing.T) {
	got := DeduplicateStrings([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseHexQuantity(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0x0", "0", false},
		{"0x64", "100", false},
		{"0xde0b6b3a7640000", "1000000000000000000", false},
		{"0x0000000000000000000000000000000000000000000000000000000000000064", "100", false},
		{"0x", "", true},
		{"64", "", true},
		{"0xzz", "", true},
	}
	for _, c := range cases {
		got, err := ParseHexQuantity(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseHexQuantity(%q) expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexQuantity(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseHexQuantity(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestNormalizeIntegerAmount(t *testing.T) {
	if got, err := NormalizeIntegerAmount("000123"); err != nil || got != "123" {
		t.Fatalf("got %q, %v", got, err)
	}
	if got, err := NormalizeIntegerAmount("340282366920938463463374607431768211456"); err != nil || got != "340282366920938463463374607431768211456" {
		t.Fatalf("big amount lost precision: %q, %v", got, err)
	}
	for _, bad := range []string{"1.5", "-1", "abc", ""} {
		if _, err := NormalizeIntegerAmount(bad); err == nil {
			t.Errorf("NormalizeIntegerAmount(%q) expected error", bad)
		}
	}
}

func TestBalanceCacheKey(t *testing.T) {
	got := BalanceCacheKey("erc20", EvmChainScope(1), "0xABCD", "", "0xAbC")
	if got != "erc20:evm_1:0xabcd:0xAbC" {
		t.Fatalf("unexpected key %q", got)
	}
	got = BalanceCacheKey("erc1155", EvmChainScope(137), "0xab", "7", "0x1")
	if got != "erc1155:evm_137:0xab:7:0x1" {
		t.Fatalf("unexpected key %q", got)
	}
	got = BalanceCacheKey("cosmos_native", CosmosChainScope("osmosis-1"), "", "", "osmo1xyz")
	if got != "cosmos_native:cosmos_osmosis-1:osmo1xyz" {
		t.Fatalf("unexpected key %q", got)
	}
	if NamespacedKey("", "k") != "k" || NamespacedKey("ns", "k") != "ns:k" {
		t.Fatal("unexpected namespaced key")
	}
}
