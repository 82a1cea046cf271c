// Package metrics exposes the engine's one piece of observability: a
// handful of prometheus counters and histograms for the Query layer's
// public operations and the merge pass.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder wraps the counters and histograms one table's Query wiring
// increments. The zero value is not usable; construct with New or
// NewForRegistry.
type Recorder struct {
	operations   *prometheus.CounterVec
	errors       *prometheus.CounterVec
	mergeLatency prometheus.Histogram
	mergedBases  prometheus.Counter
}

// New registers a Recorder's collectors against prometheus's default
// registry, labeled by table.
func New(table string) *Recorder {
	return NewForRegistry(table, prometheus.DefaultRegisterer)
}

// NewForRegistry registers against a caller-supplied registerer, which
// tests use to avoid colliding with the global default registry.
func NewForRegistry(table string, reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lstore",
			Name:      "operations_total",
			Help:      "Count of Query operations by kind.",
			ConstLabels: prometheus.Labels{
				"table": table,
			},
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lstore",
			Name:      "operation_errors_total",
			Help:      "Count of Query operations that returned an error or a false/not-found result.",
			ConstLabels: prometheus.Labels{
				"table": table,
			},
		}, []string{"op"}),
		mergeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lstore",
			Name:      "merge_duration_seconds",
			Help:      "Wall-clock duration of PageRange.Merge passes.",
			ConstLabels: prometheus.Labels{
				"table": table,
			},
			Buckets: prometheus.DefBuckets,
		}),
		mergedBases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lstore",
			Name:      "merge_bases_consolidated_total",
			Help:      "Count of base rows overwritten by merge passes.",
			ConstLabels: prometheus.Labels{
				"table": table,
			},
		}),
	}
	reg.MustRegister(r.operations, r.errors, r.mergeLatency, r.mergedBases)
	return r
}

// Observe records one call to op, incrementing the error counter too when
// ok is false.
func (r *Recorder) Observe(op string, ok bool) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op).Inc()
	if !ok {
		r.errors.WithLabelValues(op).Inc()
	}
}

// ObserveMerge records one Merge pass's duration and how many bases it
// consolidated.
func (r *Recorder) ObserveMerge(d time.Duration, basesUpdated int) {
	if r == nil {
		return
	}
	r.mergeLatency.Observe(d.Seconds())
	r.mergedBases.Add(float64(basesUpdated))
}
