package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"web3-balance/internal/worker/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsServer 暴露 /metrics 与 /healthz，monitor.enable 关闭时为空实现
type MetricsServer struct {
	cfg    config.MonitorConfig
	logger *zap.Logger
	server *http.Server
}

func NewMetricsServer(cfg config.MonitorConfig, logger *zap.Logger) *MetricsServer {
	s := &MetricsServer{cfg: cfg, logger: logger}
	if !cfg.Enable || cfg.PrometheusAddr == "" {
		return s
	}
	s.server = &http.Server{
		Addr:              cfg.PrometheusAddr,
		Handler:           newMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run 启动指标暴露服务
func (s *MetricsServer) Run() {
	if s.server == nil {
		return
	}

	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.cfg.PrometheusAddr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// Stop 优雅关闭 HTTP 服务
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
