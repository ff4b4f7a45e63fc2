// Package metrics exposes campaign instrumentation via Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Collector aggregates the counters and gauges of one optimizer process.
type Collector struct {
	evaluations      *prometheus.CounterVec
	iterations       prometheus.Counter
	randomSelections prometheus.Counter
	bestObjective    prometheus.Gauge
	evalDuration     prometheus.Histogram
}

// NewCollector registers the campaign metrics with reg. Passing a fresh
// registry per test keeps registration collision-free.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lattice_evaluations_total",
			Help: "Evaluator pipeline calls by outcome status.",
		}, []string{"status"}),
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "lattice_iterations_total",
			Help: "Completed optimization loop iterations.",
		}),
		randomSelections: factory.NewCounter(prometheus.CounterOpts{
			Name: "lattice_random_selections_total",
			Help: "Next-point selections taken by the random exploration path.",
		}),
		bestObjective: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lattice_best_objective",
			Help: "Best observed specific stiffness so far.",
		}),
		evalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "lattice_evaluation_duration_seconds",
			Help: "Wall-clock duration of evaluator pipeline calls.",
			// Pipeline runs span seconds (synthetic) to tens of minutes.
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// RecordEvaluation counts one finished evaluator call.
func (c *Collector) RecordEvaluation(status models.ObservationStatus, elapsed time.Duration) {
	c.evaluations.WithLabelValues(string(status)).Inc()
	c.evalDuration.Observe(elapsed.Seconds())
}

// RecordIteration counts one completed loop iteration.
func (c *Collector) RecordIteration(random bool) {
	c.iterations.Inc()
	if random {
		c.randomSelections.Inc()
	}
}

// SetBestObjective publishes the incumbent best.
func (c *Collector) SetBestObjective(v float64) {
	c.bestObjective.Set(v)
}
