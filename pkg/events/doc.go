/*
Package events provides an in-memory broker for observing subsystem
lifecycle notifications.

The broker is strictly an observation surface: it sits beside the
coordination core, never inside it. Subsystem buses carry the
authoritative PARENT/CHILD/SELF events; the broker mirrors committed
moments out to interested listeners (CLIs, debug dumps, tests) without
being able to influence gating or ordering.

	┌────────────── NOTIFICATION BROKER ──────────────┐
	│                                                  │
	│  subsystem core                                  │
	│     Publish ──► event channel (buffer: 100)      │
	│                      │                           │
	│                broadcast loop                    │
	│                      │                           │
	│        subscriber channels (buffer: 50 each)     │
	│                                                  │
	└──────────────────────────────────────────────────┘

Notification types:

	subsystem.registered   — a subsystem was constructed and inserted
	subsystem.transition   — a state change was committed (From → To)
	subsystem.deregistered — the worker exited and the entry was removed

Publishing is asynchronous and delivery per subscriber is best-effort: a
subscriber whose buffer is full misses the notification rather than
stalling the publisher. Each notification carries a UUID so downstream
consumers can deduplicate across fan-in.
*/
package events
