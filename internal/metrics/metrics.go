// Package metrics exposes Prometheus collectors for solves, enumeration and
// the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squad_solver_solves_total",
			Help: "Total model solves by engine and outcome status.",
		},
		[]string{"engine", "status"},
	)
	solveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "squad_solver_solve_duration_seconds",
			Help:    "Wall time of a single model solve.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"engine"},
	)
	groupsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "squad_enumeration_groups_evaluated_total",
			Help: "Complete groups produced by the enumeration engine.",
		},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "squad_cache_lookups_total",
			Help: "Result cache lookups by outcome.",
		},
		[]string{"result"},
	)
)

// ObserveSolve records one engine invocation. status is "error" when the
// engine itself failed.
func ObserveSolve(engine, status string, elapsed time.Duration) {
	solvesTotal.WithLabelValues(engine, status).Inc()
	solveDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

func AddGroupsEvaluated(n int) {
	if n > 0 {
		groupsEvaluated.Add(float64(n))
	}
}

// ObserveCacheLookup counts a hit or a miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
