package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dialogue metrics
	DialogueTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_dialogue_turns_total",
			Help: "Total number of handled chat events",
		},
		[]string{"flow", "status"}, // status: ok|invalid|error|panic
	)

	DialogueTurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradejournal_dialogue_turn_duration_seconds",
			Help:    "Time spent handling one chat event, including coach calls",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"flow"},
	)

	TradesLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_trades_total",
			Help: "Trade mutations by operation",
		},
		[]string{"operation"}, // operation: logged|edited|deleted
	)

	// Coaching metrics
	CoachingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_coaching_calls_total",
			Help: "Total number of coaching requests",
		},
		[]string{"provider", "operation", "status"}, // status: success|fallback|canned
	)

	CoachingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradejournal_coaching_latency_seconds",
			Help:    "Coaching latency in seconds, retries included",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	CoachingRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_coaching_retries_total",
			Help: "Total number of retried completion attempts",
		},
		[]string{"provider"},
	)

	// Delivery metrics
	BroadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_broadcast_deliveries_total",
			Help: "Broadcast messages by delivery outcome",
		},
		[]string{"status"}, // status: sent|failed
	)

	TelegramMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_telegram_messages_total",
			Help: "Outbound Telegram messages",
		},
		[]string{"kind", "status"}, // kind: text|photo|callback
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradejournal_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradejournal_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradejournal_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			DialogueTurns,
			DialogueTurnDuration,
			TradesLogged,
			CoachingCalls,
			CoachingLatency,
			CoachingRetries,
			BroadcastDeliveries,
			TelegramMessages,
			WorkerExecutions,
			WorkerDuration,
			WorkerLastRun,
			KafkaMessages,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDialogueTurn records one handled event
func RecordDialogueTurn(flow, status string, duration time.Duration) {
	if flow == "" {
		flow = "idle"
	}
	DialogueTurns.WithLabelValues(flow, status).Inc()
	DialogueTurnDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordCoachingCall records a coach request and how it was answered
func RecordCoachingCall(provider, operation, status string, latency time.Duration) {
	CoachingCalls.WithLabelValues(provider, operation, status).Inc()
	CoachingLatency.WithLabelValues(provider, operation).Observe(latency.Seconds())
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordKafkaMessage records a produced event
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}

// RecordTelegramMessage records an outbound Bot API call
func RecordTelegramMessage(kind string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	TelegramMessages.WithLabelValues(kind, status).Inc()
}
