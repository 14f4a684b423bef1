package config

import (
	"fmt"
	"strconv"
	"time"

	"web3-balance/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	Monitor       MonitorConfig       `mapstructure:"monitor"`
	Rollbar       RollbarConfig       `mapstructure:"rollbar"`
	Balance       BalanceConfig       `mapstructure:"balance"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"`
	TopicRequest string `mapstructure:"topic_request"`
	TopicResult  string `mapstructure:"topic_result"`
	GroupID      string `mapstructure:"group_id"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig chain node 等配置表所在库，driver: postgres | mysql
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	SnapshotIndex string   `mapstructure:"snapshot_index"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

type WorkerConfig struct {
	WorkerNum       int `mapstructure:"worker_num"`
	RefreshInterval int `mapstructure:"refresh_interval"` // 秒，watchlist 刷新周期，0 关闭
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
}

const (
	CacheBackendRedis = "redis"
	CacheBackendLocal = "local"
)

// BalanceConfig 余额查询相关配置，时间单位为秒
type BalanceConfig struct {
	CacheNamespace   string            `mapstructure:"cache_namespace"`
	CacheTTL         int               `mapstructure:"cache_ttl"`
	CacheBackend     string            `mapstructure:"cache_backend"`
	BatchSize        int               `mapstructure:"batch_size"`
	FetcherBatchSize int               `mapstructure:"fetcher_batch_size"`
	RPCTimeout       int               `mapstructure:"rpc_timeout"`
	RPCRetries       *int              `mapstructure:"rpc_retries"`
	RPCRateLimit     int               `mapstructure:"rpc_rate_limit"` // 每分钟，0 不限
	MaxConcurrency   int               `mapstructure:"max_concurrency"`
	CW721PageLimit   int               `mapstructure:"cw721_page_limit"`
	FetcherContracts map[string]string `mapstructure:"fetcher_contracts"` // evm chain id -> balance fetcher 合约
}

// WithDefaults 补齐默认值
func (c BalanceConfig) WithDefaults() BalanceConfig {
	if c.CacheNamespace == "" {
		c.CacheNamespace = "token_balances"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 300
	}
	if c.CacheBackend == "" {
		c.CacheBackend = CacheBackendRedis
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FetcherBatchSize <= 0 {
		c.FetcherBatchSize = 500
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = 10
	}
	if c.RPCRetries == nil {
		retries := 1
		c.RPCRetries = &retries
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	if c.CW721PageLimit <= 0 {
		c.CW721PageLimit = 100
	}
	return c
}

func (c BalanceConfig) TTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (c BalanceConfig) Timeout() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Second
}

func (c BalanceConfig) Retries() int {
	if c.RPCRetries == nil {
		return 0
	}
	return *c.RPCRetries
}

// FetcherContractMap 解析 chain id 字符串 key
func (c BalanceConfig) FetcherContractMap() (map[uint64]string, error) {
	m := make(map[uint64]string, len(c.FetcherContracts))
	for k, v := range c.FetcherContracts {
		chainID, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fetcher_contracts chain id %q: %w", k, err)
		}
		m[chainID] = v
	}
	return m, nil
}

func InitConfig() Config {
	var config Config

	viper.SetConfigName("config.worker")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	if err := mapstructure.Decode(viper.AllSettings(), &config); err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	config.Balance = config.Balance.WithDefaults()

	return config
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}
