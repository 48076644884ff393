package command

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Lifecycle states of a command.
const (
	StateIdle        = "idle"
	StateInitialized = "initialized"
	StateExecuting   = "executing"
	StateEnding      = "ending"
)

const (
	eventSchedule = "schedule"
	eventExecute  = "execute"
	eventEnd      = "end"
	eventRelease  = "release"
)

type lifecycle struct {
	*fsm.FSM
}

func newLifecycle(onEnter func(state string)) *lifecycle {
	events := fsm.Events{
		{Name: eventSchedule, Src: []string{StateIdle}, Dst: StateInitialized},
		{Name: eventExecute, Src: []string{StateInitialized, StateExecuting}, Dst: StateExecuting},
		{Name: eventEnd, Src: []string{StateInitialized, StateExecuting}, Dst: StateEnding},
		{Name: eventRelease, Src: []string{StateEnding}, Dst: StateIdle},
	}

	callbacks := fsm.Callbacks{}
	if onEnter != nil {
		callbacks["enter_state"] = func(_ context.Context, e *fsm.Event) {
			onEnter(e.Dst)
		}
	}

	return &lifecycle{FSM: fsm.NewFSM(StateIdle, events, callbacks)}
}

// fire moves the machine. Staying in the same state is not an error.
func (l *lifecycle) fire(event string) error {
	err := l.Event(context.Background(), event)
	if err == nil {
		return nil
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}
