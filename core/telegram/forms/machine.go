package forms

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/m3rciful/tgforms/core/telegram/state"
)

const (
	stateFinished = "finished"

	eventStart = "start"
	eventReset = "reset"
)

func advanceEvent(tok state.State) string { return "advance:" + string(tok) }

// machine is the transition table of one form: idle, one state per field, finished.
type machine struct {
	form   string
	events fsm.Events
}

func newMachine(f *Form) *machine {
	first := string(f.fields[0].token)
	events := fsm.Events{
		{Name: eventStart, Src: []string{string(state.StateIdle)}, Dst: first},
	}
	resetSrc := []string{stateFinished}
	for i, fld := range f.fields {
		dst := stateFinished
		if i+1 < len(f.fields) {
			dst = string(f.fields[i+1].token)
		}
		events = append(events, fsm.EventDesc{
			Name: advanceEvent(fld.token),
			Src:  []string{string(fld.token)},
			Dst:  dst,
		})
		resetSrc = append(resetSrc, string(fld.token))
	}
	events = append(events, fsm.EventDesc{Name: eventReset, Src: resetSrc, Dst: string(state.StateIdle)})
	return &machine{form: f.id, events: events}
}

// step fires event from the given state and returns the destination. The FSM is
// rebuilt per call since the current state lives in the conversation store.
func (m *machine) step(ctx context.Context, from state.State, event string) (state.State, error) {
	sm := fsm.NewFSM(string(from), m.events, fsm.Callbacks{})
	if err := sm.Event(ctx, event); err != nil {
		return from, fmt.Errorf("forms: %s: %s from %q: %w", m.form, event, from, err)
	}
	return state.State(sm.Current()), nil
}
