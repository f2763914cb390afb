package subsystem

import (
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/metrics"
	"github.com/cuemby/hutch/pkg/types"
)

// HandleBusMessage consumes one envelope from the bus and dispatches it.
// It returns false once the terminator is observed, at which point the
// subsystem has deregistered itself; bespoke worker loops should exit.
func (s *Subsystem) HandleBusMessage() bool {
	env, ok := s.bus.Pop()
	if !ok {
		s.proceed.Broadcast()
		s.deregister()
		return false
	}

	s.dispatch(env)
	s.proceed.Broadcast()
	return true
}

func (s *Subsystem) dispatch(env types.Envelope) {
	if env.Extended() {
		metrics.EventsDispatchedTotal.WithLabelValues("payload").Inc()
		if s.hooks.OnMessage == nil {
			s.log.Debug().Msg("payload with no OnMessage hook, dropped")
			return
		}
		if err := s.runMessageHook(env.Payload); err != nil {
			s.log.Error().Err(err).Msg("message hook failed")
			s.Error()
		}
		return
	}

	ev := env.Event
	if !ev.Origin.Valid() || !ev.State.Valid() {
		metrics.InvalidEventsTotal.Inc()
		s.log.Error().Stringer("event", ev).Msg("invalid event on bus, dropped")
		return
	}
	metrics.EventsDispatchedTotal.WithLabelValues(ev.Origin.String()).Inc()

	switch ev.Origin {
	case types.OriginSelf:
		s.handleSelf(ev)
	case types.OriginParent:
		s.handleParent(ev)
	case types.OriginChild:
		s.handleChild(ev)
	}
}

// handleSelf runs the side-effect hook for a trigger, then commits the
// target state under the parent gate.
func (s *Subsystem) handleSelf(ev types.Event) {
	if ev.State == types.StateInit {
		// there is no trigger back to INIT
		metrics.InvalidEventsTotal.Inc()
		s.log.Error().Stringer("event", ev).Msg("invalid SELF event, dropped")
		return
	}

	if ev.State == types.StateDestroyed {
		s.destroySelf()
		return
	}

	var err error
	switch ev.State {
	case types.StateRunning:
		err = s.runLifecycleHook("on_start", s.hooks.OnStart)
	case types.StateError:
		err = s.runLifecycleHook("on_error", s.hooks.OnError)
	case types.StateStopped:
		err = s.runLifecycleHook("on_stop", s.hooks.OnStop)
		s.cancel.Store(true)
	}
	if err != nil {
		s.log.Error().Err(err).Stringer("target", ev.State).Msg("lifecycle hook failed, routing to error")
		if ev.State != types.StateError {
			s.Error()
		}
		return
	}

	s.commitState(ev.State)
}

// destroySelf is the teardown path: raise cancel, run the hook, commit
// DESTROYED, then terminate the bus so the worker exits. The bus is
// terminated only after the state is committed.
func (s *Subsystem) destroySelf() {
	if s.State() == types.StateDestroyed {
		// duplicate destroy event that survived the drain
		return
	}

	s.cancel.Store(true)
	if err := s.runLifecycleHook("on_destroy", s.hooks.OnDestroy); err != nil {
		// teardown always completes
		s.log.Error().Err(err).Msg("destroy hook failed, continuing teardown")
	}
	s.hookCancel()

	s.commitState(types.StateDestroyed)
	s.stopBus()
}

// handleParent reacts to a parent's committed transition. DESTROYED and
// ERROR raise the cancel flag so a pending commit on this subsystem
// abandons its gate wait; DESTROYED additionally drops the parent from
// the parent set.
func (s *Subsystem) handleParent(ev types.Event) {
	switch ev.State {
	case types.StateDestroyed:
		s.removeParent(ev.Src)
		s.cancel.Store(true)
	case types.StateError:
		s.cancel.Store(true)
	}

	if s.hooks.OnParent != nil {
		if err := s.runEventHook("on_parent", s.hooks.OnParent, ev); err != nil {
			s.log.Error().Err(err).Stringer("event", ev).Msg("parent hook failed, routing to error")
			s.Error()
		}
		return
	}
	s.cascadeParent(ev)
}

// handleChild reacts to a child's committed transition. A destroyed
// child is dropped from the child set; everything else is left to the
// OnChild hook.
func (s *Subsystem) handleChild(ev types.Event) {
	if ev.State == types.StateDestroyed {
		s.removeChild(ev.Src)
	}

	if s.hooks.OnChild == nil {
		return
	}
	if err := s.runEventHook("on_child", s.hooks.OnChild, ev); err != nil {
		s.log.Error().Err(err).Stringer("event", ev).Msg("child hook failed, routing to error")
		s.Error()
	}
}

// commitState performs the gated state change and fans the transition
// out to interested parents and children. The state write, the registry
// update, and the fan-out enqueues all happen under the state-change
// mutex, so any observer that sees a fan-out event observes at least
// this state on a subsequent registry read.
func (s *Subsystem) commitState(target types.State) {
	cur := s.State()
	if cur == target || cur == types.StateDestroyed {
		return
	}

	timer := metrics.NewTimer()
	s.mu.Lock()
	for !s.parentsOK() {
		s.proceed.Wait()
	}
	timer.ObserveDuration(metrics.GateWaitSeconds)

	old := s.State()
	if err := s.machine.fire(target); err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Stringer("target", target).Msg("transition rejected")
		return
	}
	s.state.Store(int32(target))
	if err := s.reg.UpdateState(s.tag, target); err != nil {
		// entry already gone; local state remains authoritative
		s.log.Debug().Err(err).Msg("registry update skipped")
	}

	for p := range s.parents {
		ent, err := s.reg.Get(p)
		if err != nil || ent.State != types.StateRunning {
			continue
		}
		ent.Handle.Deliver(types.Envelope{Event: types.Event{
			Origin: types.OriginChild,
			Src:    s.tag,
			State:  target,
		}})
	}
	for c := range s.children {
		ent, err := s.reg.Get(c)
		if err != nil || ent.State == types.StateDestroyed {
			continue
		}
		ent.Handle.Deliver(types.Envelope{Event: types.Event{
			Origin: types.OriginParent,
			Src:    s.tag,
			State:  target,
		}})
	}

	s.proceed.Broadcast()
	s.mu.Unlock()

	metrics.SubsystemsByState.WithLabelValues(old.String()).Dec()
	metrics.SubsystemsByState.WithLabelValues(target.String()).Inc()
	metrics.TransitionsTotal.WithLabelValues(target.String()).Inc()
	s.publish(events.TypeTransition, old, target)
	s.log.Debug().Stringer("from", old).Stringer("to", target).Msg("transition committed")
}

// parentsOK is the gate predicate. Caller holds mu. The cancel flag is a
// one-shot override: consuming it resets it to false.
func (s *Subsystem) parentsOK() bool {
	if len(s.parents) == 0 {
		return true
	}
	if types.State(s.state.Load()) == types.StateDestroyed {
		return true
	}
	if s.cancel.CompareAndSwap(true, false) {
		return true
	}
	for p := range s.parents {
		ent, err := s.reg.Get(p)
		if err != nil {
			// deregistered parent counts as destroyed
			continue
		}
		if ent.State != types.StateRunning && ent.State != types.StateDestroyed {
			return false
		}
	}
	return true
}

// stopBus discards unprocessed events and installs the terminator.
func (s *Subsystem) stopBus() {
	for {
		if _, ok := s.bus.TryPop(); !ok {
			break
		}
	}
	s.cancel.Store(true)
	s.bus.Terminate()
}

// deregister removes this subsystem from the registry, once.
func (s *Subsystem) deregister() {
	s.deregOnce.Do(func() {
		final := s.State()
		s.reg.Remove(s.tag)
		metrics.SubsystemsByState.WithLabelValues(final.String()).Dec()
		s.publish(events.TypeDeregistered, final, final)
		s.log.Debug().Stringer("state", final).Msg("subsystem deregistered")
	})
}
