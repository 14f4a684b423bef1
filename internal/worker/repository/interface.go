package repository

import (
	"web3-balance/pkg/elasticsearch"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

type Repository interface {
	GetRedis() RedisClient
	GetDB() DBClient
	GetMQ() MQClient
	// GetES 未配置 elasticsearch 时为 nil
	GetES() *elasticsearch.Client
	Close() error
}
