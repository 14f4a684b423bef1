package dao

import (
	"context"

	"web3-balance/internal/worker/model"

	"gorm.io/gorm"
)

type WatchlistDAO interface {
	ListEnabled(ctx context.Context) ([]*model.BalanceWatchlist, error)
}

type watchlistDAO struct {
	db *gorm.DB
}

func NewWatchlistDAO(db *gorm.DB) WatchlistDAO {
	return &watchlistDAO{db: db}
}

func (d *watchlistDAO) ListEnabled(ctx context.Context) ([]*model.BalanceWatchlist, error) {
	var lists []*model.BalanceWatchlist
	err := d.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("id").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}
