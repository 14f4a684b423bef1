package model

import "github.com/lib/pq"

// BalanceWatchlist 定时刷新余额的地址集合
type BalanceWatchlist struct {
	ID              int64          `gorm:"column:id;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;type:varchar(255)" json:"name"`
	SourceType      string         `gorm:"column:source_type;type:varchar(32);not null" json:"source_type"`
	ChainNodeID     *int64         `gorm:"column:chain_node_id" json:"chain_node_id,omitempty"`
	EthChainID      *uint64        `gorm:"column:eth_chain_id" json:"eth_chain_id,omitempty"`
	CosmosChainID   *string        `gorm:"column:cosmos_chain_id;type:varchar(64)" json:"cosmos_chain_id,omitempty"`
	ContractAddress *string        `gorm:"column:contract_address;type:varchar(128)" json:"contract_address,omitempty"`
	TokenID         *string        `gorm:"column:token_id;type:varchar(128)" json:"token_id,omitempty"`
	Addresses       pq.StringArray `gorm:"column:addresses;type:text[]" json:"addresses"`
	Enabled         bool           `gorm:"column:enabled;default:true" json:"enabled"`
	UpdatedAt       int64          `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

func (*BalanceWatchlist) TableName() string {
	return "balance_watchlists"
}
