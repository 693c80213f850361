package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments exported by serve mode.
type Metrics struct {
	RecomputeTotal  prometheus.Counter
	RecomputeErrors prometheus.Counter
	CacheHits       prometheus.Counter

	RecomputeDuration prometheus.Histogram

	// ColumnDistance publishes the latest per-column drift distance,
	// labeled by column name and role.
	ColumnDistance *prometheus.GaugeVec
	MaxDistance    prometheus.Gauge
	LastRecompute  prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Metrics {
	return &Metrics{
		RecomputeTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driftdetect_recompute_total",
			Help: "Total number of drift recompute cycles",
		}),
		RecomputeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driftdetect_recompute_errors",
			Help: "Number of recompute cycles that failed",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "driftdetect_cache_hits",
			Help: "Number of recompute cycles served from the report cache",
		}),
		RecomputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "driftdetect_recompute_duration_seconds",
			Help:    "Wall time of one drift recompute cycle",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ColumnDistance: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "driftdetect_column_distance",
				Help: "Latest Jensen-Shannon drift distance per column",
			},
			[]string{"column", "role"},
		),
		MaxDistance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "driftdetect_max_distance",
			Help: "Largest per-column drift distance in the latest report",
		}),
		LastRecompute: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "driftdetect_last_recompute_timestamp_seconds",
			Help: "Unix time of the latest successful recompute",
		}),
	}
}
