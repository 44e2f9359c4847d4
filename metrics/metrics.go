package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decode chain metrics
var (
	StrategyAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawfinder_strategy_attempts_total",
			Help: "Total number of decode strategy attempts",
		},
		[]string{"family", "strategy", "outcome"},
	)

	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawfinder_strategy_duration_seconds",
			Help:    "Decode strategy duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"strategy"},
	)

	ChainResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawfinder_chain_results_total",
			Help: "Total number of decode chain runs by result",
		},
		[]string{"family", "result"}, // "success", "timeout", "exhausted"
	)

	ChainDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawfinder_chain_duration_seconds",
			Help:    "Decode chain duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"family"},
	)
)

// Hash and index metrics
var (
	HashesComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawfinder_hashes_computed_total",
			Help: "Total number of perceptual hashes computed",
		},
		[]string{"algorithm"},
	)

	FilesIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawfinder_files_indexed_total",
			Help: "Total number of files handled by the scanner",
		},
		[]string{"status"}, // "indexed", "skipped", "failed"
	)
)

// Handler returns the HTTP handler exposing all registered collectors
func Handler() http.Handler {
	return promhttp.Handler()
}
