package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txlake_dashboard_build_info",
			Help: "Build information of the dashboard data service",
		},
		[]string{"version", "commit", "date"},
	)

	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlake_dashboard_loads_total",
			Help: "Total number of dataset loads by outcome",
		},
		[]string{"dataset", "status"},
	)

	LoadCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlake_dashboard_load_cache_hits_total",
			Help: "Total number of loads served from the TTL cache",
		},
		[]string{"dataset"},
	)

	LoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txlake_dashboard_load_duration_seconds",
			Help:    "Duration of uncached dataset loads",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4.1s
		},
		[]string{"dataset"},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txlake_dashboard_dataset_rows",
			Help: "Row count of the most recently loaded table per dataset",
		},
		[]string{"dataset"},
	)

	ETLRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txlake_etl_runs_total",
			Help: "Total number of ETL producer runs by outcome",
		},
		[]string{"producer", "status"},
	)

	ETLRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txlake_etl_run_duration_seconds",
			Help:    "Duration of ETL producer runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~410s
		},
		[]string{"producer"},
	)

	ETLRowsWritten = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txlake_etl_rows_written",
			Help: "Rows written by the most recent successful run per producer",
		},
		[]string{"producer"},
	)
)
