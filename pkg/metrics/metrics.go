package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Work item dispatch metrics
	WorkItemsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durabletask_work_items_received_total",
			Help: "Total number of work items received from the scheduler by kind",
		},
		[]string{"kind"},
	)

	WorkItemsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durabletask_work_items_completed_total",
			Help: "Total number of work items completed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	WorkItemProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durabletask_work_item_processing_duration_seconds",
			Help:    "Time taken to process a work item end to end, by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Orchestration dispatcher metrics
	OrchestrationTurnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "durabletask_orchestration_turns_total",
			Help: "Total number of orchestration turns executed",
		},
	)

	OrchestrationTurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "durabletask_orchestration_turn_duration_seconds",
			Help:    "Time taken to execute one orchestration turn",
			Buckets: prometheus.DefBuckets,
		},
	)

	NonDeterminismErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "durabletask_non_determinism_errors_total",
			Help: "Total number of non-determinism errors detected during replay",
		},
	)

	// Activity dispatcher metrics
	ActivitiesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "durabletask_activities_in_flight",
			Help: "Number of activity executions currently holding a dispatcher slot",
		},
	)

	ActivityExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durabletask_activity_executions_total",
			Help: "Total number of activity executions by outcome",
		},
		[]string{"outcome"},
	)

	ActivityExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "durabletask_activity_execution_duration_seconds",
			Help:    "Time taken to execute an activity",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Entity dispatcher metrics
	EntityOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durabletask_entity_operations_total",
			Help: "Total number of entity operations processed by outcome",
		},
		[]string{"outcome"},
	)

	EntityBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "durabletask_entity_batch_size",
			Help:    "Number of operations processed per entity batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// Scheduler channel metrics
	ChannelReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "durabletask_channel_reconnects_total",
			Help: "Total number of scheduler channel reconnect attempts",
		},
	)

	ChannelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "durabletask_channel_connected",
			Help: "Whether the scheduler channel is currently connected (1) or not (0)",
		},
	)

	TokenRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durabletask_token_refreshes_total",
			Help: "Total number of credential token refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// Converter / payload store metrics
	PayloadsExternalizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "durabletask_payloads_externalized_total",
			Help: "Total number of payloads externalized to the payload store",
		},
	)

	PayloadStoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durabletask_payload_store_operation_duration_seconds",
			Help:    "Time taken for a payload store put/get operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(WorkItemsReceivedTotal)
	prometheus.MustRegister(WorkItemsCompletedTotal)
	prometheus.MustRegister(WorkItemProcessingDuration)
	prometheus.MustRegister(OrchestrationTurnsTotal)
	prometheus.MustRegister(OrchestrationTurnDuration)
	prometheus.MustRegister(NonDeterminismErrorsTotal)
	prometheus.MustRegister(ActivitiesInFlight)
	prometheus.MustRegister(ActivityExecutionsTotal)
	prometheus.MustRegister(ActivityExecutionDuration)
	prometheus.MustRegister(EntityOperationsTotal)
	prometheus.MustRegister(EntityBatchSize)
	prometheus.MustRegister(ChannelReconnectsTotal)
	prometheus.MustRegister(ChannelConnected)
	prometheus.MustRegister(TokenRefreshesTotal)
	prometheus.MustRegister(PayloadsExternalizedTotal)
	prometheus.MustRegister(PayloadStoreOpDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
