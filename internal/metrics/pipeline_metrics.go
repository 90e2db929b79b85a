// Package metrics defines persistence pipeline metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline counter vectors
var (
	SnapshotsInsertedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "snapshots_inserted_total",
		Help:      "Total number of changed snapshots inserted by bookmaker",
	}, []string{"bookmaker"})

	SnapshotsConfirmedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "snapshots_confirmed_total",
		Help:      "Total number of unchanged snapshots confirmed by bookmaker",
	}, []string{"bookmaker"})

	RiskAlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "risk_alerts_total",
		Help:      "Total number of risk alerts emitted by type and severity",
	}, []string{"alert_type", "severity"})

	WriteBatchesEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "write_batches_enqueued_total",
		Help:      "Total number of write batches enqueued",
	})

	WriteBatchesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "write_batches_dropped_total",
		Help:      "Total number of write batches dropped after an integrity error",
	})

	WriteBatchRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "write_batch_retries_total",
		Help:      "Total number of write batch retry attempts",
	})
)

// Pipeline gauges
var (
	WriteQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddswatch",
		Name:      "write_queue_depth",
		Help:      "Number of batches waiting in the async write queue",
	})
)

// RecordSnapshotInserted records a changed snapshot insert.
func RecordSnapshotInserted(bookmaker string) {
	SnapshotsInsertedTotal.WithLabelValues(bookmaker).Inc()
}

// RecordSnapshotConfirmed records an unchanged snapshot confirmation.
func RecordSnapshotConfirmed(bookmaker string) {
	SnapshotsConfirmedTotal.WithLabelValues(bookmaker).Inc()
}

// RecordRiskAlert records an emitted risk alert.
func RecordRiskAlert(alertType, severity string) {
	RiskAlertsTotal.WithLabelValues(alertType, severity).Inc()
}

// RecordWriteBatchEnqueued records an enqueued write batch.
func RecordWriteBatchEnqueued() {
	WriteBatchesEnqueuedTotal.Inc()
}

// RecordWriteBatchDropped records a write batch dropped on integrity error.
func RecordWriteBatchDropped() {
	WriteBatchesDroppedTotal.Inc()
}

// RecordWriteBatchRetry records a write batch retry attempt.
func RecordWriteBatchRetry() {
	WriteBatchRetriesTotal.Inc()
}

// UpdateWriteQueueDepth updates the write queue depth gauge.
func UpdateWriteQueueDepth(depth float64) {
	WriteQueueDepth.Set(depth)
}
