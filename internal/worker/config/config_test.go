package config

import "testing"

func TestBalanceConfigDefaults(t *testing.T) {
	c := BalanceConfig{}.WithDefaults()
	if c.CacheTTL != 300 || c.TTL().Seconds() != 300 {
		t.Fatalf("unexpected ttl %d", c.CacheTTL)
	}
	if c.BatchSize != 500 || c.FetcherBatchSize != 500 {
		t.Fatalf("unexpected batch sizes %d %d", c.BatchSize, c.FetcherBatchSize)
	}
	if c.Retries() != 1 || c.CacheBackend != CacheBackendRedis || c.CacheNamespace != "token_balances" {
		t.Fatalf("unexpected defaults %+v", c)
	}

	zero := 0
	c = BalanceConfig{RPCRetries: &zero}.WithDefaults()
	if c.Retries() != 0 {
		t.Fatal("explicit zero retries must be kept")
	}
}

func TestFetcherContractMap(t *testing.T) {
	c := BalanceConfig{FetcherContracts: map[string]string{"1": "0xabc", "137": "0xdef"}}
	m, err := c.FetcherContractMap()
	if err != nil {
		t.Fatalf("FetcherContractMap: %v", err)
	}
	if m[1] != "0xabc" || m[137] != "0xdef" {
		t.Fatalf("unexpected map %v", m)
	}

	c.FetcherContracts["eth"] = "0x1"
	if _, err := c.FetcherContractMap(); err == nil {
		t.Fatal("expected error for non numeric chain id")
	}
}
