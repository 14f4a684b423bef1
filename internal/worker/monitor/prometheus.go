package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BalanceResolved 余额查询结果，origin: cache | rpc
	BalanceResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_resolved_total",
			Help: "Total number of balances returned to callers.",
		},
		[]string{"source_type", "origin"},
	)
	BalanceFetchFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_fetch_failed_total",
			Help: "Total number of addresses whose balance could not be fetched.",
		},
		[]string{"source_type"},
	)
	BalanceCacheLookup = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_cache_lookup_total",
			Help: "Balance cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	// RPCBatchDuration JSON-RPC 批量请求
	RPCBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpc_batch_duration_seconds",
			Help:    "Time taken by one JSON-RPC batch HTTP request.",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"method", "status"},
	)
	RPCBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rpc_batch_size",
			Help:    "Number of calls in each JSON-RPC batch request.",
			Buckets: []float64{1, 10, 50, 100, 200, 500, 1000},
		},
	)

	// JobExecutions 定时任务执行次数
	JobExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_job_executions_total",
			Help: "Total number of scheduled job executions by status.",
		},
		[]string{"job", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Scheduled job execution duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	// KafkaMessagesReceived Kafka 消费相关
	KafkaMessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_received_total",
			Help: "Total number of messages received from Kafka.",
		},
		[]string{"topic"},
	)
	KafkaWorkerMessagesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balance_consumer_worker_dispatch_count_total",
			Help: "Number of requests assigned to each balance worker.",
		},
		[]string{"worker_id"},
	)
	KafkaWorkerProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_worker_process_duration_seconds",
			Help:    "Time taken to resolve a balance request by each worker.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"worker_id"},
	)

	// AsyncWriterMessagesQueued AsyncWriter 指标
	AsyncWriterMessagesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_queued_total",
			Help: "Total number of messages queued to async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
	AsyncWriterItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "async_writer_items_written_total",
			Help: "Total number of items successfully written by the async writer.",
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 余额指标
		BalanceResolved,
		BalanceFetchFailed,
		BalanceCacheLookup,
		RPCBatchDuration,
		RPCBatchSize,
		JobExecutions,
		JobDuration,

		// kafka指标
		KafkaMessagesReceived,
		KafkaWorkerMessagesDispatched,
		KafkaWorkerProcessDuration,

		// async 写入指标
		AsyncWriterMessagesQueued,
		AsyncWriterMessagesDropped,
		AsyncWriterFlushDuration,
		AsyncWriterItemsWritten,
	)
}

// ObserveRPCBatch 作为 evm_client.BatchObserver 使用
func ObserveRPCBatch(method string, size int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RPCBatchDuration.WithLabelValues(method, status).Observe(elapsed.Seconds())
	RPCBatchSize.Observe(float64(size))
}
