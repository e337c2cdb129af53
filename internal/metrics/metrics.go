// Package metrics holds the Prometheus collectors for the reading core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "luminous"

var (
	// viewLatency measures derived-view computation, including store reads.
	// Labels: view (library, series, signal, world)
	viewLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "core",
		Name:      "view_latency_seconds",
		Help:      "Latency of derived read views",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"view"})

	// progressWrites counts tracker calls by outcome.
	// Labels: op (save, complete), outcome (inserted, updated, anonymous, error)
	progressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "core",
		Name:      "progress_writes_total",
		Help:      "Progress tracker calls by outcome",
	}, []string{"op", "outcome"})

	// gateRedactions counts signals served truncated at their glitch point.
	gateRedactions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "core",
		Name:      "gate_redactions_total",
		Help:      "Signals served truncated by the glitch gate",
	})
)

// ObserveView records the time since start for the named view.
func ObserveView(view string, start time.Time) {
	viewLatency.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

func ProgressWrite(op, outcome string) {
	progressWrites.WithLabelValues(op, outcome).Inc()
}

func GateRedaction() {
	gateRedactions.Inc()
}
