package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cuemby/hutch/pkg/types"
)

// DefaultMaxSubsystems is the advisory capacity used when none is given.
const DefaultMaxSubsystems = 16

var (
	// ErrNotFound is returned when a tag has no registry entry.
	ErrNotFound = errors.New("subsystem not found")

	// ErrRegistryFull is returned when an insert would exceed the
	// configured maximum subsystem count.
	ErrRegistryFull = errors.New("registry full")
)

// Handle is the non-owning view of a subsystem kept in the registry.
// The registry never extends a subsystem's lifetime; entries are removed
// when the owning worker exits.
type Handle interface {
	Tag() types.Tag
	Name() string
	State() types.State

	// Deliver enqueues an envelope on the subsystem's bus. Delivery to a
	// destroyed subsystem is a silent no-op.
	Deliver(types.Envelope)

	// Destroy triggers teardown. Idempotent; a no-op once destroyed.
	Destroy()
}

// Entry is the copy handed out by Get. Callers never hold internal
// references across the registry lock.
type Entry struct {
	State  types.State
	Handle Handle
}

// Info is a read-only snapshot row used for introspection.
type Info struct {
	Tag   types.Tag
	Name  string
	State types.State
}

// Registry maps subsystem tags to their externally visible state and a
// back-reference to the subsystem handle. Readers are concurrent,
// writers exclusive.
type Registry struct {
	mu      sync.RWMutex
	max     uint32
	entries map[types.Tag]Entry

	tagCounter atomic.Uint32
}

// New creates a registry with the given advisory capacity. A zero max
// falls back to DefaultMaxSubsystems.
func New(max uint32) *Registry {
	if max == 0 {
		max = DefaultMaxSubsystems
	}
	return &Registry{
		max:     max,
		entries: make(map[types.Tag]Entry, max),
	}
}

// NextTag allocates a unique subsystem tag. Generation is monotonic and
// serialized; the sentinel high byte marks the value as a subsystem tag.
func (r *Registry) NextTag() types.Tag {
	return types.TagSentinel | types.Tag(r.tagCounter.Add(1))
}

// Insert registers a subsystem. It fails with ErrRegistryFull once the
// advisory capacity is reached.
func (r *Registry) Insert(tag types.Tag, state types.State, h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tag]; !exists && uint32(len(r.entries)) >= r.max {
		return fmt.Errorf("%w: max %d subsystems", ErrRegistryFull, r.max)
	}
	r.entries[tag] = Entry{State: state, Handle: h}
	return nil
}

// Remove deletes a subsystem entry. Removing an absent tag is a no-op.
func (r *Registry) Remove(tag types.Tag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, tag)
}

// Get returns a copy of the entry for tag, or ErrNotFound.
func (r *Registry) Get(tag types.Tag) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[tag]
	if !ok {
		return Entry{}, fmt.Errorf("tag %s: %w", tag, ErrNotFound)
	}
	return e, nil
}

// UpdateState overwrites the externally visible state for tag.
func (r *Registry) UpdateState(tag types.Tag, state types.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[tag]
	if !ok {
		return fmt.Errorf("tag %s: %w", tag, ErrNotFound)
	}
	e.State = state
	r.entries[tag] = e
	return nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Max returns the advisory capacity.
func (r *Registry) Max() uint32 {
	return r.max
}

// Entries returns a snapshot of all entries ordered by tag.
func (r *Registry) Entries() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.entries))
	for tag, e := range r.entries {
		info := Info{Tag: tag, State: e.State}
		if e.Handle != nil {
			info.Name = e.Handle.Name()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Snapshot writes a human-readable dump of the registry to w, one block
// per entry.
func (r *Registry) Snapshot(w io.Writer) {
	for _, info := range r.Entries() {
		fmt.Fprintf(w, "registry entry -------\n")
		fmt.Fprintf(w, "  tag   : %s\n", info.Tag)
		fmt.Fprintf(w, "  state : %s\n", info.State)
		fmt.Fprintf(w, "  name  : %s\n", info.Name)
	}
}
