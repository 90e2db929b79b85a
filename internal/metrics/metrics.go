// Package metrics provides centralized Prometheus metrics registry for the odds engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	ScrapeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "scrape_runs_total",
		Help:      "Total number of scrape runs by trigger and final status",
	}, []string{"trigger", "status"})
	EventsScrapedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "events_scraped_total",
		Help:      "Total number of events scraped successfully",
	})
	EventsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "events_failed_total",
		Help:      "Total number of events that failed on every platform",
	})
	StaleRunsRecoveredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "stale_runs_recovered_total",
		Help:      "Total number of stale runs marked failed by the watchdog or startup recovery",
	})
)

// Gauge metrics
var (
	ScrapeQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddswatch",
		Name:      "scrape_queue_depth",
		Help:      "Number of events queued in the current scrape run",
	})
	OddsCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddswatch",
		Name:      "odds_cache_entries",
		Help:      "Number of snapshots held in the in-memory odds cache",
	})
	CycleRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "oddswatch",
		Name:      "cycle_running",
		Help:      "Whether a scrape cycle is currently in progress",
	})
)

// Histogram metrics
var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oddswatch",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of full scrape cycles in seconds",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	})
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oddswatch",
		Name:      "batch_duration_seconds",
		Help:      "Duration of scrape batches in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})
	EventScrapeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "oddswatch",
		Name:      "event_scrape_duration_seconds",
		Help:      "Duration of per-event scrapes across all platforms in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(ScrapeRunsTotal)
		registry.MustRegister(EventsScrapedTotal)
		registry.MustRegister(EventsFailedTotal)
		registry.MustRegister(StaleRunsRecoveredTotal)

		// Register gauge metrics
		registry.MustRegister(ScrapeQueueDepth)
		registry.MustRegister(OddsCacheEntries)
		registry.MustRegister(CycleRunning)

		// Register histogram metrics
		registry.MustRegister(CycleDuration)
		registry.MustRegister(BatchDuration)
		registry.MustRegister(EventScrapeDuration)

		// Register adapter metrics
		registry.MustRegister(AdapterRequestsTotal)
		registry.MustRegister(AdapterRequestDuration)
		registry.MustRegister(UnmappedMarketsTotal)
		registry.MustRegister(MappingFailuresTotal)

		// Register pipeline metrics
		registry.MustRegister(SnapshotsInsertedTotal)
		registry.MustRegister(SnapshotsConfirmedTotal)
		registry.MustRegister(RiskAlertsTotal)
		registry.MustRegister(WriteBatchesEnqueuedTotal)
		registry.MustRegister(WriteBatchesDroppedTotal)
		registry.MustRegister(WriteBatchRetriesTotal)
		registry.MustRegister(WriteQueueDepth)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRunCompleted records a finished scrape run.
func RecordRunCompleted(trigger, status string, durationSeconds float64) {
	ScrapeRunsTotal.WithLabelValues(trigger, status).Inc()
	CycleDuration.Observe(durationSeconds)
}

// RecordEventScraped records a successfully scraped event.
func RecordEventScraped(durationSeconds float64) {
	EventsScrapedTotal.Inc()
	EventScrapeDuration.Observe(durationSeconds)
}

// RecordEventFailed records an event that failed on all platforms.
func RecordEventFailed() {
	EventsFailedTotal.Inc()
}

// RecordStaleRunRecovered records a run recovered by the watchdog.
func RecordStaleRunRecovered() {
	StaleRunsRecoveredTotal.Inc()
}

// RecordBatchDuration records the duration of a scrape batch.
func RecordBatchDuration(durationSeconds float64) {
	BatchDuration.Observe(durationSeconds)
}

// UpdateScrapeQueueDepth updates the queued events gauge.
func UpdateScrapeQueueDepth(depth float64) {
	ScrapeQueueDepth.Set(depth)
}

// UpdateOddsCacheEntries updates the odds cache size gauge.
func UpdateOddsCacheEntries(count float64) {
	OddsCacheEntries.Set(count)
}

// SetCycleRunning flags whether a cycle is in progress.
func SetCycleRunning(running bool) {
	if running {
		CycleRunning.Set(1)
	} else {
		CycleRunning.Set(0)
	}
}
