/*
Package metrics exposes Prometheus instrumentation for the lifecycle
coordinator.

Collectors:

	hutch_subsystems{state}              gauge    live subsystems per state
	hutch_events_dispatched_total{origin} counter  bus events handled by workers
	hutch_invalid_events_total           counter  malformed events dropped
	hutch_transitions_total{state}       counter  committed transitions per target
	hutch_hook_failures_total{hook}      counter  hook errors and recovered panics
	hutch_gate_wait_seconds              histogram time blocked on the parent gate

Call Register once at startup and mount Handler on an HTTP mux:

	metrics.Register()
	http.Handle("/metrics", metrics.Handler())

The gate-wait histogram is the one to watch in production: a growing tail
means children are spending long stretches blocked on parents that never
reach RUNNING.
*/
package metrics
