/*
Package bus provides the per-subsystem message queue used for inter-subsystem
IPC.

The queue is a locking multi-producer / single-consumer FIFO with
termination semantics:

	┌──────────────── SUBSYSTEM BUS ────────────────┐
	│                                                │
	│  producers (any goroutine)                     │
	│     Push(envelope) ──► [ e1 e2 e3 ... ]        │
	│                              │                 │
	│  consumer (the worker)       ▼                 │
	│     Pop()  ── blocks ──► envelope, true        │
	│     Pop()  ── closed ──► zero,     false       │
	│                                                │
	└────────────────────────────────────────────────┘

Termination is one-shot and idempotent. Items enqueued before Terminate
are still delivered; once the queue is empty and terminated, Pop returns
the closed marker (ok == false) forever. Pushes after termination are
silently dropped — a subsystem being torn down is not an error condition
for its peers.

Ordering is FIFO under producer interleaving: insertions by one goroutine
are observed by the consumer in program order. No fairness is guaranteed
across producers.
*/
package bus
