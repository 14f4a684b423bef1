package evm_client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultDialTimeout = 5 * time.Second

// Pool 按 rpc url 复用 ethclient，单地址直连查询使用
// transport 与批量请求共用，重试和限流保持一致
type Pool struct {
	mu        sync.Mutex
	transport http.RoundTripper
	clients   map[string]*ethclient.Client
}

func NewPool(transport http.RoundTripper) *Pool {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Pool{transport: transport, clients: make(map[string]*ethclient.Client)}
}

func (p *Pool) Get(ctx context.Context, rawurl string) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[rawurl]; ok {
		return c, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	rpcClient, err := rpc.DialOptions(dialCtx, rawurl, rpc.WithHTTPClient(&http.Client{Transport: p.transport}))
	if err != nil {
		return nil, fmt.Errorf("dial evm rpc: %w", err)
	}
	client := ethclient.NewClient(rpcClient)
	p.clients[rawurl] = client
	return client, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for url, c := range p.clients {
		c.Close()
		delete(p.clients, url)
	}
}
