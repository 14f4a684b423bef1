package worker

import (
	"context"
	"strings"
	"time"

	"web3-balance/internal/worker/balance"
	"web3-balance/internal/worker/cache"
	"web3-balance/internal/worker/config"
	"web3-balance/internal/worker/consumer"
	"web3-balance/internal/worker/dao"
	"web3-balance/internal/worker/handler"
	"web3-balance/internal/worker/job"
	"web3-balance/internal/worker/model"
	"web3-balance/internal/worker/monitor"
	"web3-balance/internal/worker/repository"
	"web3-balance/internal/worker/writer"
	"web3-balance/internal/worker/writer/snapshot"
	"web3-balance/pkg/errreport"

	"go.uber.org/zap"
)

const (
	registryReloadInterval = 10 * time.Minute
	resultBatchSize        = 200
	snapshotBatchSize      = 500
	writerFlushInterval    = 500 * time.Millisecond
)

type Core struct {
	cfg        config.Config
	tl         *zap.Logger
	repo       repository.Repository
	reporter   errreport.Reporter
	components *balance.Components
	scheduler  *job.Scheduler
	consumers  []consumer.KafkaConsumer
	results    *writer.AsyncBatchWriter[model.BalanceResultEvent]
	snapshots  *writer.AsyncBatchWriter[model.BalanceSnapshot]
	metrics    *monitor.MetricsServer
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Core, error) {
	repo, err := repository.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	daoManager := dao.NewDAOManager(repo.GetDB(), repo.GetRedis())

	balanceCache, err := cache.New(cfg.Balance.CacheBackend, repo.GetRedis(), logger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	reporter := errreport.New(errreport.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Rollbar.Environment,
	}, logger)

	components, err := balance.Build(ctx, cfg.Balance, balanceCache, daoManager.ChainNodeDAO, daoManager.FetcherContractDAO, reporter, logger)
	if err != nil {
		reporter.Close()
		_ = repo.Close()
		return nil, err
	}

	core := &Core{
		cfg:        cfg,
		tl:         logger,
		repo:       repo,
		reporter:   reporter,
		components: components,
		scheduler:  job.NewScheduler(logger),
		metrics:    monitor.NewMetricsServer(cfg.Monitor, logger),
	}

	// 结果与快照异步批量写出，未配置时不发布
	var results handler.Submitter[model.BalanceResultEvent]
	if repo.GetMQ() != nil && cfg.Kafka.TopicResult != "" {
		core.results = writer.NewAsyncBatchWriter(logger,
			snapshot.NewKafkaResultWriter(repo.GetMQ(), logger, cfg.Kafka.TopicResult),
			resultBatchSize, writerFlushInterval, "balance_result", 2)
		results = core.results
	}
	var snapshots handler.Submitter[model.BalanceSnapshot]
	if repo.GetES() != nil && cfg.Elasticsearch.SnapshotIndex != "" {
		core.snapshots = writer.NewAsyncBatchWriter(logger,
			snapshot.NewESSnapshotWriter(repo.GetES(), logger, cfg.Elasticsearch.SnapshotIndex),
			snapshotBatchSize, writerFlushInterval, "balance_snapshot", 2)
		snapshots = core.snapshots
	}
	balanceHandler := handler.NewBalanceHandler(logger, components.Resolver, results, snapshots)

	// 启动时预热 chain node 本地缓存
	warmup := job.NewChainNodeWarmup(daoManager.ChainNodeDAO, logger)
	core.scheduler.RegisterOnceJob("chain_node_warmup", warmup.Run)

	// 定时重新加载 fetcher 合约
	core.scheduler.RegisterJob("fetcher_registry_reload", registryReloadInterval, components.Registry.Run)

	if cfg.Worker.RefreshInterval > 0 {
		refresh := job.NewWatchlistRefresh(daoManager.WatchlistDAO, balanceHandler, logger)
		core.scheduler.RegisterJob("watchlist_refresh", time.Duration(cfg.Worker.RefreshInterval)*time.Second, refresh.Run)
	}

	if strings.TrimSpace(cfg.Kafka.Brokers) != "" && cfg.Kafka.TopicRequest != "" {
		core.consumers = append(core.consumers, consumer.NewBalanceRequestConsumer(cfg, logger, balanceHandler))
	} else {
		logger.Info("kafka request topic not configured, skip balance request consumer")
	}
	return core, nil
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	// 启动监控服务
	if c.metrics != nil {
		c.metrics.Run()
	}

	// 先启动写出器，再启动消费者
	if c.results != nil {
		c.results.Start(ctx)
	}
	if c.snapshots != nil {
		c.snapshots.Start(ctx)
	}

	for _, cons := range c.consumers {
		go cons.Run(ctx)
	}

	// 启动调度器
	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully")

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	for _, cons := range c.consumers {
		if err := cons.Stop(); err != nil {
			c.tl.Warn("stop consumer failed", zap.String("consumer", cons.ID()), zap.Error(err))
		}
	}

	if c.scheduler != nil {
		c.scheduler.Stop(ctx)
	}

	// 消费者和任务停止后再刷出剩余数据
	if c.results != nil {
		c.results.Close()
	}
	if c.snapshots != nil {
		c.snapshots.Close()
	}

	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}

	c.components.Close()
	c.reporter.Close()
	_ = c.repo.Close()

	c.tl.Info("Worker core stopped.")
}
