package repository

import (
	"context"
	"strings"
	"time"

	"web3-balance/internal/worker/config"
	"web3-balance/pkg/database"
	"web3-balance/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func New(cfg config.Config, logger *zap.Logger) (Repository, error) {
	r := &repositoryImpl{
		cfg:    cfg,
		logger: logger,
	}
	if err := r.init(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

type repositoryImpl struct {
	cfg    config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	mq     *kafka.Writer
	es     *elasticsearch.Client
}

func (r *repositoryImpl) init() error {
	var err error
	r.db, err = database.Init(r.cfg.Database.Driver, r.cfg.Database.DSN)
	if err != nil {
		return err
	}

	r.rdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})
	if err := r.rdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
	}

	if strings.TrimSpace(r.cfg.Kafka.Brokers) != "" {
		brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
		r.mq = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{}, // 同一 request id 落在同一分区
			BatchSize:    500,
			BatchBytes:   1024 * 1024, // 1MB
			Async:        false,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
			MaxAttempts:  5,
			WriteTimeout: 2 * time.Second,
		}
	} else {
		r.logger.Info("kafka brokers empty, skip kafka writer initialization")
	}

	// elasticsearch 可选
	if len(r.cfg.Elasticsearch.Addresses) > 0 {
		r.es, err = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
			Indexs:    r.snapshotIndexes(),
		}, r.logger)
		if err != nil {
			r.logger.Warn("failed to connect to elasticsearch, continue without it", zap.Error(err))
			r.es = nil
		}
	} else {
		r.logger.Info("elasticsearch addresses empty, skip elasticsearch initialization")
	}
	return nil
}

func (r *repositoryImpl) snapshotIndexes() map[string]map[string]interface{} {
	if r.cfg.Elasticsearch.SnapshotIndex == "" {
		return nil
	}
	keyword := map[string]interface{}{"type": "keyword"}
	return map[string]map[string]interface{}{
		r.cfg.Elasticsearch.SnapshotIndex: {
			"mappings": map[string]interface{}{
				"properties": map[string]interface{}{
					"cache_key":        keyword,
					"source_type":      keyword,
					"chain_scope":      keyword,
					"contract_address": keyword,
					"token_id":         keyword,
					"address":          keyword,
					// uint256 超出 long 范围，按字符串存
					"balance":    keyword,
					"updated_at": map[string]interface{}{"type": "date", "format": "epoch_millis"},
				},
			},
		},
	}
}

func (r *repositoryImpl) GetRedis() *redis.Client {
	return r.rdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetES() *elasticsearch.Client {
	return r.es
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
	if r.mq != nil {
		_ = r.mq.Close()
	}
	return nil
}
