package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Subsystem population
	SubsystemsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hutch_subsystems",
			Help: "Number of live subsystems by lifecycle state",
		},
		[]string{"state"},
	)

	// Event dispatch
	EventsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_events_dispatched_total",
			Help: "Total bus events dispatched by origin",
		},
		[]string{"origin"},
	)

	InvalidEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hutch_invalid_events_total",
			Help: "Total malformed bus events dropped by workers",
		},
	)

	// Transitions
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_transitions_total",
			Help: "Total committed state transitions by target state",
		},
		[]string{"state"},
	)

	HookFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hutch_hook_failures_total",
			Help: "Total hook errors and recovered panics by hook name",
		},
		[]string{"hook"},
	)

	// Gate
	GateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hutch_gate_wait_seconds",
			Help:    "Time spent waiting on the parent gate before a commit",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs .. ~26s
		},
	)
)

var registerOnce sync.Once

// Register registers all Hutch collectors with the default Prometheus
// registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SubsystemsByState,
			EventsDispatchedTotal,
			InvalidEventsTotal,
			TransitionsTotal,
			HookFailuresTotal,
			GateWaitSeconds,
		)
	})
}

// Handler returns an HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
