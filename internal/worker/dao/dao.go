package dao

import (
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// DAOManager 管理所有DAO实例
type DAOManager struct {
	ChainNodeDAO       ChainNodeDAO
	FetcherContractDAO FetcherContractDAO
	WatchlistDAO       WatchlistDAO
}

// NewDAOManager 创建DAO管理器实例，rds 可以为空
func NewDAOManager(db *gorm.DB, rds *redis.Client) *DAOManager {
	return &DAOManager{
		ChainNodeDAO:       NewChainNodeDAO(db, rds),
		FetcherContractDAO: NewFetcherContractDAO(db),
		WatchlistDAO:       NewWatchlistDAO(db),
	}
}
