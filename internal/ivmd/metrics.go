package ivmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ivmd_build_info",
			Help: "Build information of the ivmd demo host",
		},
		[]string{"version", "commit", "date"},
	)

	recordsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivmd_records_added_total",
			Help: "Total number of records added to the embedded engine",
		},
	)

	recordsRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivmd_records_removed_total",
			Help: "Total number of records removed from the embedded engine",
		},
	)

	snapshotsServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivmd_snapshots_served_total",
			Help: "Total number of snapshot requests served",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivmd_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ivmd_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	liveRecordsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivmd_live_records",
			Help: "Current number of live records in the embedded engine",
		},
	)

	activeGroupsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivmd_active_groups",
			Help: "Current number of active group states in the demo pipeline",
		},
	)
)

// SetBuildInfo records the running binary's version metadata, called once
// from cmd/ivmd's main.
func SetBuildInfo(version, commit, date string) {
	buildInfo.WithLabelValues(version, commit, date).Set(1)
}

// recordStatistics mirrors a statistics() snapshot into the gauges above,
// called from the background stats loop.
func recordStatistics(stats map[string]any) {
	if n, ok := stats["live_records"].(int); ok {
		liveRecordsGauge.Set(float64(n))
	}
	if n, ok := stats["active_groups"].(int); ok {
		activeGroupsGauge.Set(float64(n))
	}
}
