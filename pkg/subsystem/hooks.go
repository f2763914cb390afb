package subsystem

import (
	"context"
	"fmt"

	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/types"
)

// Hooks is the extension surface of a subsystem. Every field is
// optional; a nil field selects the default behavior.
//
// Lifecycle hooks (OnStart, OnStop, OnError, OnDestroy) run on the
// subsystem's worker while it handles the corresponding SELF event; the
// default for each is a no-op. A hook may block, but it blocks only its
// own subsystem.
//
// OnParent runs when a parent commits a new state. The default cascades
// the parent's state: RUNNING starts this subsystem, STOPPED stops it,
// ERROR errors it, DESTROYED destroys it. Setting OnParent replaces the
// cascade entirely; call the trigger methods yourself to keep parts of
// it.
//
// OnChild runs when a child commits a new state; default no-op.
//
// OnMessage receives user payloads posted on the bus via Post; the
// default logs and drops them.
//
// A hook returning an error (or panicking) aborts the commit of the
// event being handled and routes the subsystem toward ERROR. Two cases
// differ: a failing OnError is only logged, leaving the state as it was
// with no new ERROR trigger, and the destroy path always completes.
type Hooks struct {
	OnStart   func(ctx context.Context) error
	OnStop    func(ctx context.Context) error
	OnError   func(ctx context.Context) error
	OnDestroy func(ctx context.Context) error
	OnParent  func(ev types.Event) error
	OnChild   func(ev types.Event) error
	OnMessage func(payload any) error
}

// runLifecycleHook invokes a lifecycle hook with panic containment.
func (s *Subsystem) runLifecycleHook(name string, fn func(context.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook %s panicked: %v", name, r)
		}
		if err != nil {
			metrics.HookFailuresTotal.WithLabelValues(name).Inc()
		}
	}()
	return fn(s.hookCtx)
}

// runEventHook invokes an event hook (OnParent/OnChild) with panic
// containment.
func (s *Subsystem) runEventHook(name string, fn func(types.Event) error, ev types.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook %s panicked: %v", name, r)
		}
		if err != nil {
			metrics.HookFailuresTotal.WithLabelValues(name).Inc()
		}
	}()
	return fn(ev)
}

// runMessageHook invokes OnMessage with panic containment.
func (s *Subsystem) runMessageHook(payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook on_message panicked: %v", r)
		}
		if err != nil {
			metrics.HookFailuresTotal.WithLabelValues("on_message").Inc()
		}
	}()
	return s.hooks.OnMessage(payload)
}

// cascadeParent is the default OnParent policy: inherit the parent's
// state.
func (s *Subsystem) cascadeParent(ev types.Event) {
	switch ev.State {
	case types.StateRunning:
		s.Start()
	case types.StateStopped:
		s.Stop()
	case types.StateError:
		s.Error()
	case types.StateDestroyed:
		s.Destroy()
	case types.StateInit:
		// a parent announcing INIT requires no reaction
	}
}
