package dao

import (
	"context"

	"web3-balance/internal/worker/model"

	"gorm.io/gorm"
)

type FetcherContractDAO interface {
	// List 所有启用的 balance fetcher 合约
	List(ctx context.Context) ([]*model.BalanceFetcherContract, error)
}

type fetcherContractDAO struct {
	db *gorm.DB
}

func NewFetcherContractDAO(db *gorm.DB) FetcherContractDAO {
	return &fetcherContractDAO{db: db}
}

func (d *fetcherContractDAO) List(ctx context.Context) ([]*model.BalanceFetcherContract, error) {
	var contracts []*model.BalanceFetcherContract
	err := d.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("eth_chain_id").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}
