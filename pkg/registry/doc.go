/*
Package registry tracks every live subsystem as a mapping from tag to its
externally visible state plus a non-owning handle reference.

The registry is the authoritative answer to "what state is subsystem X
in?" for everyone except X's own worker. Subsystems consult it inside the
wait-for-parents gate, and the fan-out path uses it to decide which
parents and children are still interested in events.

# Lock discipline

A single RWMutex guards the map: readers concurrent, writers exclusive.
Get returns a copy of the (state, handle) pair so callers never hold
internal references across the lock boundary, and no user hook or bus
push ever runs under the registry lock.

# Ownership

Entries are back-references, never owners. A subsystem inserts itself at
construction and removes itself when its worker observes the bus
terminator; a Get after that point returns ErrNotFound. The advisory
capacity is checked on insert only.

# Tags

The registry also allocates subsystem tags: a serialized monotonic
counter OR-ed with a sentinel high byte (0x55) that debug tooling uses to
recognize subsystem tags in dumps.
*/
package registry
