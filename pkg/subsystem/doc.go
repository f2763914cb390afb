/*
Package subsystem implements the core of the Hutch lifecycle
coordinator: named, tagged components arranged in a parent/child
dependency DAG, each with its own message bus and worker goroutine.

# Control flow

Triggers enqueue SELF events; everything else follows from the worker
draining the bus:

	caller ── Start/Stop/Error/Destroy ──► bus ──► worker
	                                               │
	                                      run side-effect hook
	                                               │
	                                     commitState (parent gate)
	                                               │
	                              ┌────────────────┴───────────────┐
	                        CHILD events to                 PARENT events to
	                        running parents                 live children

A subsystem commits a new state only once every parent is RUNNING or
DESTROYED (the wait-for-parents gate). The cancel flag is the one-shot
override that abandons the wait: it is raised by a parent's DESTROYED or
ERROR event, by the subsystem's own stop/destroy path, and by Destroy
itself so that teardown can interrupt a blocked commit.

# State machine

	from        may move to
	init        running, stopped, error, destroyed
	running     stopped, error, destroyed
	stopped     running, error, destroyed
	error       running, stopped, destroyed
	destroyed   (none)

Transition legality is enforced by a per-subsystem machine; DESTROYED is
absorbing. Committing the current state again is a no-op.

# Lock discipline

Each subsystem owns one state-change mutex guarding its machine and its
parent/child sets. A subsystem never acquires another subsystem's mutex:
cross-subsystem interaction is restricted to bus delivery and registry
reads. Bus pushes never block, so fan-out cannot deadlock.

# Workers and teardown

Spawn runs the worker goroutine; HandleBusMessage is public for bespoke
loops. Destroy enqueues SELF/DESTROYED; the worker runs OnDestroy,
commits the state, terminates the bus, observes the terminator on the
next pop, deregisters from the registry, and exits. Join waits for that
exit. Triggers fired at a destroyed subsystem are silently dropped.

# Extension

Behavior is injected through the Hooks struct (nil field = default). The
default OnParent cascades the parent's state into this subsystem, which
is what gives a tree of subsystems its one-command startup and teardown.
User payloads can share the bus via Post and the OnMessage hook.
*/
package subsystem
