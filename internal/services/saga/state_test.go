package saga

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransition_Total(t *testing.T) {
	for _, from := range States() {
		for _, ev := range Events() {
			next, err := Transition(from, ev)
			if err != nil {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "%s on %s", ev, from)
				assert.Equal(t, from, next, "rejected transition must not move %s", from)
				continue
			}
			assert.Contains(t, States(), next)
		}
	}
}

func TestTransition_TerminalStatesHaveNoExit(t *testing.T) {
	for _, st := range States() {
		if !st.Terminal() {
			continue
		}
		for _, ev := range Events() {
			_, err := Transition(st, ev)
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s must be terminal", st)
		}
	}
}

func TestTransition_Paths(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   State
	}{
		{
			name:   "success",
			events: []Event{EventDebitSucceeded, EventCreditSucceeded, EventPersisted, EventNotified},
			want:   StateNotified,
		},
		{
			name:   "debit failed",
			events: []Event{EventDebitFailed},
			want:   StateFailed,
		},
		{
			name:   "credit failed and compensated",
			events: []Event{EventDebitSucceeded, EventCreditFailed, EventCompensated},
			want:   StateCompensated,
		},
		{
			name:   "credit failed and compensation failed",
			events: []Event{EventDebitSucceeded, EventCreditFailed, EventCompensationFailed},
			want:   StateCompensationFailed,
		},
		{
			name:   "debit outcome unknown and compensated",
			events: []Event{EventDebitUnconfirmed, EventCompensated},
			want:   StateCompensated,
		},
		{
			name:   "debit outcome unknown and compensation failed",
			events: []Event{EventDebitUnconfirmed, EventCompensationFailed},
			want:   StateCompensationFailed,
		},
		{
			name:   "persist failed and compensated",
			events: []Event{EventDebitSucceeded, EventCreditSucceeded, EventPersistFailed, EventCompensated},
			want:   StateCompensated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := StateStarted
			for _, ev := range tt.events {
				var err error
				st, err = Transition(st, ev)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, st)
			assert.True(t, st.Terminal())
			assert.Equal(t, tt.want == StateNotified, st.Succeeded())
		})
	}
}

func TestTransition_SkippingAStepIsRejected(t *testing.T) {
	_, err := Transition(StateStarted, EventCreditSucceeded)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(StateDebited, EventCompensated)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(StateStarted, EventCompensated)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRun_KeepsTrail(t *testing.T) {
	r := &run{state: StateStarted, trail: []State{StateStarted}, logger: zap.NewNop()}
	r.fire(EventDebitSucceeded)
	r.fire(EventNotified) // rejected, state unchanged
	r.fire(EventCreditFailed)
	r.fire(EventCompensated)

	assert.Equal(t, StateCompensated, r.state)
	assert.Equal(t, "STARTED>DEBITED>COMPENSATING>COMPENSATED", r.path())
}
