package model

// BalanceRequestEvent kafka 请求消息
type BalanceRequestEvent struct {
	RequestID       string   `json:"requestId"`
	SourceType      string   `json:"sourceType"`
	Addresses       []string `json:"addresses"`
	ChainNodeID     int64    `json:"chainNodeId,omitempty"`
	EvmChainID      uint64   `json:"evmChainId,omitempty"`
	CosmosChainID   string   `json:"cosmosChainId,omitempty"`
	ContractAddress string   `json:"contractAddress,omitempty"`
	TokenID         string   `json:"tokenId,omitempty"`
	CacheRefresh    bool     `json:"cacheRefresh,omitempty"`
	BatchSize       int      `json:"batchSize,omitempty"`
}

// BalanceResultEvent 结果消息，Error 只在整个请求失败（配置错误）时设置
type BalanceResultEvent struct {
	RequestID  string            `json:"requestId"`
	SourceType string            `json:"sourceType"`
	ChainScope string            `json:"chainScope,omitempty"`
	Balances   map[string]string `json:"balances"`
	Error      string            `json:"error,omitempty"`
	ResolvedAt int64             `json:"resolvedAt"`
}

// BalanceSnapshot es 快照文档，一个地址一条
type BalanceSnapshot struct {
	CacheKey        string `json:"cache_key"`
	SourceType      string `json:"source_type"`
	ChainScope      string `json:"chain_scope"`
	ContractAddress string `json:"contract_address,omitempty"`
	TokenID         string `json:"token_id,omitempty"`
	Address         string `json:"address"`
	Balance         string `json:"balance"`
	UpdatedAt       int64  `json:"updated_at"`
}
