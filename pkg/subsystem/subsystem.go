package subsystem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/bus"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/registry"
	"github.com/cuemby/hutch/pkg/types"
)

var (
	// ErrNilRegistry is returned when constructing without a registry.
	ErrNilRegistry = errors.New("nil registry")

	// ErrNilParent is returned when a declared parent is nil.
	ErrNilParent = errors.New("nil parent")

	// ErrParentDestroyed is returned when attaching to a parent that has
	// already been destroyed.
	ErrParentDestroyed = errors.New("parent already destroyed")
)

// Subsystem is a named, tagged lifecycle-managed component. It owns a
// message bus, a parent set, a child set, and a worker that dispatches
// bus events one at a time.
//
// All state mutation happens on the subsystem's own worker. External
// goroutines interact only through the triggers (which enqueue SELF
// events) and the read accessors.
type Subsystem struct {
	tag  types.Tag
	name string

	reg    *registry.Registry
	broker *events.Broker
	bus    *bus.Queue[types.Envelope]

	// state mirrors the machine's current state for lock-free reads.
	state  atomic.Int32
	cancel atomic.Bool

	// mu is the state-change mutex: it guards machine, parents and
	// children, and is the lock the proceed condition waits on. A
	// subsystem never acquires another subsystem's mu.
	mu       sync.Mutex
	proceed  *sync.Cond
	machine  machine
	parents  map[types.Tag]struct{}
	children map[types.Tag]struct{}

	hooks Hooks
	log   zerolog.Logger

	// hookCtx is handed to lifecycle hooks; it is canceled when the
	// subsystem is destroyed so user goroutines can wind down.
	hookCtx    context.Context
	hookCancel context.CancelFunc

	spawnOnce sync.Once
	spawned   atomic.Bool
	deregOnce sync.Once
	done      chan struct{}
}

// New constructs a subsystem, links it under the declared parents, and
// registers it with reg in state INIT. The worker is not started; call
// Spawn, or drive HandleBusMessage from your own loop.
func New(name string, reg *registry.Registry, parents ...*Subsystem) (*Subsystem, error) {
	if reg == nil {
		return nil, fmt.Errorf("subsystem %q: %w", name, ErrNilRegistry)
	}

	s := &Subsystem{
		tag:      reg.NextTag(),
		name:     name,
		reg:      reg,
		bus:      bus.New[types.Envelope](),
		machine:  newMachine(),
		parents:  make(map[types.Tag]struct{}, len(parents)),
		children: make(map[types.Tag]struct{}),
		done:     make(chan struct{}),
	}
	s.proceed = sync.NewCond(&s.mu)
	s.hookCtx, s.hookCancel = context.WithCancel(context.Background())
	s.log = log.WithSubsystem(name, s.tag)

	linked := make([]*Subsystem, 0, len(parents))
	var err error
	for _, p := range parents {
		if p == nil {
			err = ErrNilParent
			break
		}
		if _, dup := s.parents[p.tag]; dup {
			continue
		}
		if linkErr := p.addChild(s.tag); linkErr != nil {
			err = linkErr
			break
		}
		s.parents[p.tag] = struct{}{}
		linked = append(linked, p)
	}
	if err == nil {
		err = reg.Insert(s.tag, types.StateInit, s)
	}
	if err != nil {
		for _, p := range linked {
			p.removeChild(s.tag)
		}
		return nil, fmt.Errorf("subsystem %q: %w", name, err)
	}

	metrics.SubsystemsByState.WithLabelValues(types.StateInit.String()).Inc()
	s.log.Debug().Int("parents", len(s.parents)).Msg("subsystem registered")
	return s, nil
}

// WithHooks installs the extension hooks. Must be called before Spawn
// and before any trigger is fired.
func (s *Subsystem) WithHooks(h Hooks) *Subsystem {
	if s.spawned.Load() {
		s.log.Warn().Msg("WithHooks called after Spawn, ignoring")
		return s
	}
	s.hooks = h
	return s
}

// WithBroker attaches a notification broker. A registered notification
// is published immediately so late observers still see the subsystem.
func (s *Subsystem) WithBroker(b *events.Broker) *Subsystem {
	s.broker = b
	s.publish(events.TypeRegistered, s.State(), s.State())
	return s
}

// Tag returns the unique subsystem tag.
func (s *Subsystem) Tag() types.Tag { return s.tag }

// Name returns the human label.
func (s *Subsystem) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Subsystem) State() types.State {
	return types.State(s.state.Load())
}

// Parents returns a snapshot of the current parent tags.
func (s *Subsystem) Parents() []types.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedTags(s.parents)
}

// Children returns a snapshot of the current child tags.
func (s *Subsystem) Children() []types.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedTags(s.children)
}

// Start triggers a transition toward RUNNING.
func (s *Subsystem) Start() {
	s.trigger(types.StateRunning)
}

// Stop triggers a transition toward STOPPED.
func (s *Subsystem) Stop() {
	s.trigger(types.StateStopped)
}

// Error triggers a transition toward ERROR.
func (s *Subsystem) Error() {
	s.trigger(types.StateError)
}

// Destroy triggers teardown. It raises the cancel flag from the calling
// goroutine so a worker blocked on the parent gate abandons its wait;
// the SELF event then drives the normal destroy path. Idempotent, and a
// silent no-op once the subsystem is destroyed.
func (s *Subsystem) Destroy() {
	s.cancel.Store(true)
	s.proceed.Broadcast()
	s.trigger(types.StateDestroyed)
}

// Shutdown destroys the subsystem and waits for its worker to exit.
func (s *Subsystem) Shutdown(ctx context.Context) error {
	s.Destroy()
	return s.Join(ctx)
}

// Post enqueues a user payload on the subsystem's bus. The worker
// forwards it to the OnMessage hook.
func (s *Subsystem) Post(payload any) {
	s.Deliver(types.Envelope{Payload: payload})
}

// Deliver enqueues an envelope on this subsystem's bus and pokes the
// gate. Delivery to a destroyed subsystem is silently dropped. Deliver
// is safe from any goroutine and never blocks.
func (s *Subsystem) Deliver(env types.Envelope) {
	if s.State() == types.StateDestroyed {
		return
	}
	s.bus.Push(env)
	s.proceed.Broadcast()
}

func (s *Subsystem) trigger(target types.State) {
	s.Deliver(types.Envelope{Event: types.Event{
		Origin: types.OriginSelf,
		Src:    s.tag,
		State:  target,
	}})
}

// addChild is called by a constructing child while it links itself under
// this subsystem.
func (s *Subsystem) addChild(child types.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if types.State(s.state.Load()) == types.StateDestroyed {
		return fmt.Errorf("parent %q: %w", s.name, ErrParentDestroyed)
	}
	s.children[child] = struct{}{}
	return nil
}

func (s *Subsystem) removeChild(child types.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.children, child)
}

func (s *Subsystem) removeParent(parent types.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parents, parent)
}

func (s *Subsystem) publish(t events.Type, from, to types.State) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.Notification{
		Type: t,
		Tag:  s.tag,
		Name: s.name,
		From: from,
		To:   to,
	})
}

func sortedTags(set map[types.Tag]struct{}) []types.Tag {
	out := make([]types.Tag, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
