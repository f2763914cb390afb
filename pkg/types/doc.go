/*
Package types defines the shared core types of the Hutch lifecycle
coordinator: subsystem tags, lifecycle states, event origins, and the
event envelope carried on subsystem buses.

# Lifecycle

Every subsystem progresses through a closed set of states, starting in
init:

	from        may move to
	init        running, stopped, error, destroyed
	running     stopped, error, destroyed
	stopped     running, error, destroyed
	error       running, stopped, destroyed
	destroyed   (none)

destroyed is absorbing: once a subsystem commits it, no later transition
is possible.

# Events

State changes travel between subsystems as Event values tagged with an
Origin relative to the receiver:

	OriginSelf   — a trigger (Start/Stop/Error/Destroy) on the subsystem itself
	OriginParent — a parent committed a new state
	OriginChild  — a child committed a new state

Envelope wraps an Event together with an optional user payload so that
extended deployments can share a subsystem's bus with their own message
types.
*/
package types
