package subsystem

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/cuemby/hutch/pkg/types"
)

const (
	eventStart   = "start"
	eventStop    = "stop"
	eventFail    = "fail"
	eventDestroy = "destroy"
)

// machine wraps the lifecycle transition table. DESTROYED is absorbing:
// no event lists it as a source state.
type machine struct {
	fsm *fsm.FSM
}

func newMachine() machine {
	return machine{fsm: fsm.NewFSM(
		types.StateInit.String(),
		fsm.Events{
			{Name: eventStart, Src: []string{"init", "stopped", "error"}, Dst: "running"},
			{Name: eventStop, Src: []string{"init", "running", "error"}, Dst: "stopped"},
			{Name: eventFail, Src: []string{"init", "running", "stopped"}, Dst: "error"},
			{Name: eventDestroy, Src: []string{"init", "running", "stopped", "error"}, Dst: "destroyed"},
		},
		fsm.Callbacks{},
	)}
}

// fire advances the machine toward target.
func (m machine) fire(target types.State) error {
	var event string
	switch target {
	case types.StateRunning:
		event = eventStart
	case types.StateStopped:
		event = eventStop
	case types.StateError:
		event = eventFail
	case types.StateDestroyed:
		event = eventDestroy
	default:
		return fmt.Errorf("no transition event for state %s", target)
	}
	return m.fsm.Event(context.Background(), event)
}
