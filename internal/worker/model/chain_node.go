package model

const (
	BalanceTypeEthereum = "ethereum"
	BalanceTypeCosmos   = "cosmos"
)

// ChainNode 链节点配置，由社区管理侧维护，这里只读
type ChainNode struct {
	ID            int64   `gorm:"column:id;primaryKey" json:"id"`
	Name          string  `gorm:"column:name;type:varchar(255)" json:"name"`
	URL           string  `gorm:"column:url;type:varchar(512);not null" json:"url"`
	PrivateURL    *string `gorm:"column:private_url;type:varchar(512)" json:"private_url,omitempty"`
	EthChainID    *uint64 `gorm:"column:eth_chain_id;index" json:"eth_chain_id,omitempty"`
	CosmosChainID *string `gorm:"column:cosmos_chain_id;type:varchar(64);index" json:"cosmos_chain_id,omitempty"`
	Bech32        *string `gorm:"column:bech32;type:varchar(32)" json:"bech32,omitempty"`
	BalanceType   string  `gorm:"column:balance_type;type:varchar(32)" json:"balance_type"`
	CosmosDenom   *string `gorm:"column:cosmos_denom;type:varchar(128)" json:"cosmos_denom,omitempty"` // 原生 bank denom
	CreatedAt     int64   `gorm:"column:created_at;autoCreateTime:milli" json:"created_at"`
	UpdatedAt     int64   `gorm:"column:updated_at;autoUpdateTime:milli" json:"updated_at"`
}

func (*ChainNode) TableName() string {
	return "chain_nodes"
}

// RPCURL 优先使用私有节点
func (n *ChainNode) RPCURL() string {
	if n.PrivateURL != nil && *n.PrivateURL != "" {
		return *n.PrivateURL
	}
	return n.URL
}

func (n *ChainNode) Bech32Prefix() string {
	if n.Bech32 == nil {
		return ""
	}
	return *n.Bech32
}

func (n *ChainNode) Denom() string {
	if n.CosmosDenom == nil {
		return ""
	}
	return *n.CosmosDenom
}
