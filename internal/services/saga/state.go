package saga

import (
	"errors"
	"fmt"
)

// State is a step of a transfer saga.
type State string

const (
	StateStarted            State = "STARTED"
	StateDebited            State = "DEBITED"
	StateCredited           State = "CREDITED"
	StatePersisted          State = "PERSISTED"
	StateNotified           State = "NOTIFIED"
	StateCompensating       State = "COMPENSATING"
	StateCompensated        State = "COMPENSATED"
	StateCompensationFailed State = "COMPENSATION_FAILED"
	StateFailed             State = "FAILED"
)

// Event moves a saga from one state to the next.
type Event string

const (
	EventDebitSucceeded     Event = "debit_succeeded"
	EventDebitFailed        Event = "debit_failed"
	EventDebitUnconfirmed   Event = "debit_unconfirmed"
	EventCreditSucceeded    Event = "credit_succeeded"
	EventCreditFailed       Event = "credit_failed"
	EventPersisted          Event = "persisted"
	EventPersistFailed      Event = "persist_failed"
	EventNotified           Event = "notified"
	EventCompensated        Event = "compensated"
	EventCompensationFailed Event = "compensation_failed"
)

var ErrInvalidTransition = errors.New("invalid saga transition")

var transitions = map[State]map[Event]State{
	StateStarted: {
		EventDebitSucceeded:   StateDebited,
		EventDebitFailed:      StateFailed,
		EventDebitUnconfirmed: StateCompensating,
	},
	StateDebited: {
		EventCreditSucceeded: StateCredited,
		EventCreditFailed:    StateCompensating,
	},
	StateCredited: {
		EventPersisted:     StatePersisted,
		EventPersistFailed: StateCompensating,
	},
	StatePersisted: {
		EventNotified: StateNotified,
	},
	StateCompensating: {
		EventCompensated:        StateCompensated,
		EventCompensationFailed: StateCompensationFailed,
	},
}

// Transition returns the state reached from `from` on ev. It is defined for
// every pair: pairs outside the machine return ErrInvalidTransition and leave
// the state unchanged.
func Transition(from State, ev Event) (State, error) {
	if next, ok := transitions[from][ev]; ok {
		return next, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// Terminal reports whether no event leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateNotified, StateCompensated, StateCompensationFailed, StateFailed:
		return true
	}
	return false
}

// Succeeded reports whether s ends a saga whose transfer went through.
func (s State) Succeeded() bool {
	return s == StateNotified || s == StatePersisted
}

// States lists every state of the machine.
func States() []State {
	return []State{
		StateStarted, StateDebited, StateCredited, StatePersisted, StateNotified,
		StateCompensating, StateCompensated, StateCompensationFailed, StateFailed,
	}
}

// Events lists every event of the machine.
func Events() []Event {
	return []Event{
		EventDebitSucceeded, EventDebitFailed, EventDebitUnconfirmed, EventCreditSucceeded, EventCreditFailed,
		EventPersisted, EventPersistFailed, EventNotified, EventCompensated, EventCompensationFailed,
	}
}
