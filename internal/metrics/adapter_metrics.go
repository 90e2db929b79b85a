// Package metrics defines adapter and mapping metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Adapter counter vectors
var (
	AdapterRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "adapter_requests_total",
		Help:      "Total number of bookmaker adapter requests by platform and outcome",
	}, []string{"platform", "outcome"})

	UnmappedMarketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "unmapped_markets_total",
		Help:      "Total number of markets recorded without a canonical mapping",
	}, []string{"source"})

	MappingFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oddswatch",
		Name:      "mapping_failures_total",
		Help:      "Total number of market mapping failures by source and reason",
	}, []string{"source", "reason"})
)

// Adapter histogram vectors
var (
	AdapterRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oddswatch",
		Name:      "adapter_request_duration_seconds",
		Help:      "Duration of bookmaker adapter requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})
)

// RecordAdapterRequest records an adapter request and its duration.
func RecordAdapterRequest(platform, outcome string, durationSeconds float64) {
	AdapterRequestsTotal.WithLabelValues(platform, outcome).Inc()
	AdapterRequestDuration.WithLabelValues(platform).Observe(durationSeconds)
}

// RecordUnmappedMarket records a market with no canonical mapping.
func RecordUnmappedMarket(source string) {
	UnmappedMarketsTotal.WithLabelValues(source).Inc()
}

// RecordMappingFailure records a structural mapping failure.
func RecordMappingFailure(source, reason string) {
	MappingFailuresTotal.WithLabelValues(source, reason).Inc()
}
