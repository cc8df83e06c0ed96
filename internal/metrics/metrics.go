// Package metrics 提供拍卖服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rapz_auction"

// 终结器指标
var (
	// FinalizerTicksTotal 扫描轮次总数
	FinalizerTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalizer_ticks_total",
			Help:      "自动终结扫描轮次总数",
		},
		[]string{"outcome"}, // completed, skipped_overlap, failed
	)

	// FinalizationsTotal 终结总数
	FinalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalizations_total",
			Help:      "拍卖终结总数",
		},
		[]string{"result_type", "trigger"}, // WON/NO_BIDS/STOPPED, scheduler/on_demand/admin
	)

	// FinalizationDuration 单个拍卖终结耗时
	FinalizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalization_duration_seconds",
			Help:      "单个拍卖终结耗时(秒)",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// FinalizationErrorsTotal 终结失败总数
	FinalizationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalization_errors_total",
			Help:      "拍卖终结失败总数",
		},
		[]string{"kind"}, // state_conflict, chain, store
	)

	// DueAuctionsGauge 到期待终结拍卖数量
	DueAuctionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "due_auctions_total",
			Help:      "当前到期待终结拍卖数量",
		},
	)
)

// 链上交互指标
var (
	// ChainTxTotal 链上交易总数
	ChainTxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_tx_total",
			Help:      "链上交易总数",
		},
		[]string{"op", "status"}, // op: finalize/stop/refund/force, status: success/failed
	)

	// ChainTxDuration 链上交易耗时
	ChainTxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_tx_duration_seconds",
			Help:      "链上交易确认耗时(秒)",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"op"},
	)

	// ContractBalanceGauge 合约持有余额
	ContractBalanceGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contract_balance_eth",
			Help:      "合约当前持有余额 (ETH)",
		},
	)
)

// Kafka 指标
var (
	// KafkaMessagesProduced Kafka 生产消息数
	KafkaMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_produced_total",
			Help:      "Kafka 生产消息总数",
		},
		[]string{"topic"},
	)

	// KafkaMessagesConsumed Kafka 消费消息数
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_consumed_total",
			Help:      "Kafka 消费消息总数",
		},
		[]string{"topic"},
	)
)

// HTTP 服务指标
var (
	// HTTPRequestsTotal HTTP 请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP 请求总数",
		},
		[]string{"method", "path", "code"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP 请求耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "path"},
	)
)

// RecordFinalization 记录一次拍卖终结
func RecordFinalization(resultType, trigger string, durationSeconds float64) {
	FinalizationsTotal.WithLabelValues(resultType, trigger).Inc()
	if durationSeconds > 0 {
		FinalizationDuration.Observe(durationSeconds)
	}
}

// RecordChainTx 记录一次链上交易
func RecordChainTx(op, status string, durationSeconds float64) {
	ChainTxTotal.WithLabelValues(op, status).Inc()
	if durationSeconds > 0 {
		ChainTxDuration.WithLabelValues(op).Observe(durationSeconds)
	}
}

// RecordKafkaMessage 记录 Kafka 消息
func RecordKafkaMessage(topic string, produced bool) {
	if produced {
		KafkaMessagesProduced.WithLabelValues(topic).Inc()
	} else {
		KafkaMessagesConsumed.WithLabelValues(topic).Inc()
	}
}
