// Package metrics exposes the run's Prometheus counters and gauges, using
// the same promauto package-level-var idiom as the teacher's exporter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "runs_total",
		Help:      "Total number of aggregation runs by terminal state",
	}, []string{"state"})

	RunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of a full aggregation run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"state"})

	RowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "rows_read_total",
		Help:      "Total pod_usage rows read from columnar files across all chunks",
	})

	ChunksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "chunks_processed_total",
		Help:      "Total chunks processed by the coordinator",
	})

	RowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "rows_written_total",
		Help:      "Total DailySummary rows committed to the relational store",
	})

	BulkLoadDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "bulk_load_duration_seconds",
		Help:      "Duration of the bulk-copy-or-insert load transaction",
		Buckets:   prometheus.DefBuckets,
	})

	BulkLoadFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "bulk_load_fallbacks_total",
		Help:      "Number of runs that fell back from wire-level copy to row inserts",
	})

	DiagnosticsEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ocp_usage_aggregator",
		Name:      "diagnostics_events_dropped_total",
		Help:      "Diagnostic events dropped due to async writer backpressure",
	})
)
