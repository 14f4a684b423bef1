package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, zap.NewNop()), mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	err := c.SetKeys(ctx, "token_balances", map[string]string{
		"erc20:evm_1:0xt:0xa": "100",
		"erc20:evm_1:0xt:0xb": "0",
	}, 300*time.Second)
	if err != nil {
		t.Fatalf("SetKeys: %v", err)
	}

	if v, _ := mr.Get("token_balances:erc20:evm_1:0xt:0xa"); v != "100" {
		t.Fatalf("unexpected stored value %q", v)
	}
	if ttl := mr.TTL("token_balances:erc20:evm_1:0xt:0xa"); ttl != 300*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	got, err := c.GetKeys(ctx, "token_balances", []string{"erc20:evm_1:0xt:0xa", "erc20:evm_1:0xt:0xb", "erc20:evm_1:0xt:0xc"})
	if err != nil {
		t.Fatalf("GetKeys: %v", err)
	}
	if len(got) != 2 || got["erc20:evm_1:0xt:0xa"] != "100" || got["erc20:evm_1:0xt:0xb"] != "0" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	if err := c.SetKeys(ctx, "ns", map[string]string{"k": "1"}, time.Second); err != nil {
		t.Fatalf("SetKeys: %v", err)
	}
	mr.FastForward(2 * time.Second)

	got, err := c.GetKeys(ctx, "ns", []string{"k"})
	if err != nil {
		t.Fatalf("GetKeys: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected expired key, got %v", got)
	}
}

func TestRedisCache_GetError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	c := NewRedisCache(rdb, zap.NewNop())
	mr.Close()

	if _, err = c.GetKeys(context.Background(), "ns", []string{"k"}); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

func TestLocalCache(t *testing.T) {
	c := NewLocalCache()
	ctx := context.Background()

	_ = c.SetKeys(ctx, "a", map[string]string{"k": "1"}, time.Minute)
	_ = c.SetKeys(ctx, "b", map[string]string{"k": "2"}, time.Minute)

	got, _ := c.GetKeys(ctx, "a", []string{"k", "missing"})
	if len(got) != 1 || got["k"] != "1" {
		t.Fatalf("namespace a: %v", got)
	}
	got, _ = c.GetKeys(ctx, "b", []string{"k"})
	if got["k"] != "2" {
		t.Fatalf("namespace b: %v", got)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("local", nil, zap.NewNop()); err != nil {
		t.Fatalf("local backend: %v", err)
	}
	if _, err := New("redis", nil, zap.NewNop()); err == nil {
		t.Fatal("redis backend without client must fail")
	}
	if _, err := New("memcached", nil, zap.NewNop()); err == nil {
		t.Fatal("unknown backend must fail")
	}
}
