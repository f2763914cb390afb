/*
Package probe provides liveness probes that plug into a subsystem's hook
surface.

Checkers (HTTP, TCP, exec) answer "is the thing this subsystem fronts
actually alive?". A Monitor runs a checker on an interval while its
subsystem is RUNNING, drives the subsystem into ERROR after a threshold
of consecutive failures, and starts it again once the probe recovers:

	┌───────────── PROBE MONITOR ─────────────┐
	│                                          │
	│  OnStart ──► probe loop (interval)       │
	│                 │                        │
	│        N consecutive failures            │
	│                 │                        │
	│           target.Error()                 │
	│                 │                        │
	│        M consecutive successes           │
	│                 │                        │
	│           target.Start()                 │
	│                                          │
	│  OnStop / OnDestroy ──► loop stops       │
	└──────────────────────────────────────────┘

The monitor is also the reference example for writing hooks: all
interaction with the subsystem goes through its public triggers, and the
loop honors the hook context, which is canceled at destroy.
*/
package probe
