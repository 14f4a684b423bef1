package model

// BalanceFetcherContract 各 EVM 链上部署的 balance fetcher 合约
type BalanceFetcherContract struct {
	ID              int64  `gorm:"column:id;primaryKey" json:"id"`
	EthChainID      uint64 `gorm:"column:eth_chain_id;uniqueIndex;not null" json:"eth_chain_id"`
	ContractAddress string `gorm:"column:contract_address;type:varchar(64);not null" json:"contract_address"`
	Enabled         bool   `gorm:"column:enabled;default:true" json:"enabled"`
}

func (*BalanceFetcherContract) TableName() string {
	return "balance_fetcher_contracts"
}
