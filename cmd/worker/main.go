package main

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"web3-balance/internal/worker"
	"web3-balance/internal/worker/config"
	"web3-balance/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	shutdownTrace := logger.InitTrace("web3-balance", "worker")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("worker")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	// 启动配置热加载监听
	go config.WatchConfig(&cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 初始化worker
	core, err := worker.New(ctx, cfg, tl)
	if err != nil {
		tl.Fatal("init worker failed", zap.Error(err))
	}

	go func() {
		tl.Info("Starting web3-balance worker...")
		core.Start(ctx)
	}()

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	core.Stop(stopCtx)

	if err := shutdownTrace(stopCtx); err != nil {
		tl.Warn("shutdown trace provider failed", zap.Error(err))
	}
	tl.Info("Shutting down all cores...")
}
