package states_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/states"
)

func TestConditionState(t *testing.T) {
	onTrue := newMarker("true")
	onFalse := newMarker("false")
	required := false
	s := states.NewCondition(fsm.Named("TestIsCleanRequired"),
		func(context.Context, *stepCtx) (bool, error) { return required, nil },
		fsm.State[*stepCtx](onTrue), fsm.State[*stepCtx](onFalse))

	p := newStepCtx()
	require.NoError(t, s.Step(context.Background(), p))
	assert.Same(t, onFalse, p.next)

	required = true
	p = newStepCtx()
	require.NoError(t, s.Step(context.Background(), p))
	assert.Same(t, onTrue, p.next)
}

func TestConditionState_Error(t *testing.T) {
	boom := errors.New("boom")
	end := fsm.End[*stepCtx]()
	s := states.NewCondition(fsm.Named("c"),
		func(context.Context, *stepCtx) (bool, error) { return false, boom }, end, end)

	assert.Same(t, boom, s.Step(context.Background(), newStepCtx()))
}

func TestFrequencyState(t *testing.T) {
	frequent := newMarker("frequent")
	fallback := newMarker("fallback")
	s := states.NewFrequency(fsm.Named("PendingModificationsSwitch"), 10*time.Minute,
		fsm.State[*stepCtx](frequent), fsm.State[*stepCtx](fallback))

	assert.Same(t, frequent, stepAt(t, s, t0).next, "first step picks the frequent state")
	assert.Same(t, fallback, stepAt(t, s, t0.Add(time.Minute)).next)
	assert.Same(t, fallback, stepAt(t, s, t0.Add(9*time.Minute)).next)
	assert.Same(t, frequent, stepAt(t, s, t0.Add(10*time.Minute)).next)
	assert.Same(t, fallback, stepAt(t, s, t0.Add(15*time.Minute)).next)
}

func TestSequenceState(t *testing.T) {
	next := newMarker("next")
	maxTime := newMarker("max-time")

	var ran []string
	step := func(name string, result bool, cost time.Duration) states.NamedAction[*stepCtx] {
		return states.NamedAction[*stepCtx]{Name: name, Action: func(_ context.Context, p *stepCtx) (bool, error) {
			ran = append(ran, name)
			p.now = p.now.Add(cost)
			return result, nil
		}}
	}

	t.Run("AllDone", func(t *testing.T) {
		ran = nil
		s := states.NewSequence(fsm.Named("Extensions"),
			[]states.NamedAction[*stepCtx]{step("a", true, 0), step("b", true, 0)},
			fsm.State[*stepCtx](next), states.WithMaxTimeState[*stepCtx](maxTime))

		p := newStepCtx()
		require.NoError(t, s.Step(context.Background(), p))
		assert.Same(t, next, p.next)
		assert.Equal(t, []string{"a", "b"}, ran)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("BudgetExhaustedBetweenActions", func(t *testing.T) {
		ran = nil
		s := states.NewSequence(fsm.Named("Extensions"),
			[]states.NamedAction[*stepCtx]{step("a", true, 2 * time.Hour), step("b", true, 0)},
			fsm.State[*stepCtx](next), states.WithMaxTimeState[*stepCtx](maxTime))

		p := newStepCtx()
		require.NoError(t, s.Step(context.Background(), p))
		assert.Same(t, maxTime, p.next)
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("BudgetExhaustedWithoutMaxTimeState", func(t *testing.T) {
		ran = nil
		s := states.NewSequence(fsm.Named("Extensions"),
			[]states.NamedAction[*stepCtx]{step("a", true, 0)}, fsm.State[*stepCtx](next))

		p := newStepCtx()
		p.now = p.deadline
		require.NoError(t, s.Step(context.Background(), p))
		assert.Same(t, next, p.next)
		assert.Empty(t, ran)
	})

	t.Run("FalseEnds", func(t *testing.T) {
		ran = nil
		s := states.NewSequence(fsm.Named("Extensions"),
			[]states.NamedAction[*stepCtx]{step("a", false, 0), step("b", true, 0)}, fsm.State[*stepCtx](next))

		p := newStepCtx()
		require.NoError(t, s.Step(context.Background(), p))
		assert.True(t, p.ended)
		assert.Equal(t, []string{"a"}, ran)
	})

	t.Run("ErrorNamesAction", func(t *testing.T) {
		boom := errors.New("boom")
		s := states.NewSequence(fsm.Named("Extensions"), []states.NamedAction[*stepCtx]{{
			Name:   "broken",
			Action: func(context.Context, *stepCtx) (bool, error) { return false, boom },
		}}, fsm.State[*stepCtx](next))

		err := s.Step(context.Background(), newStepCtx())
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "broken")
	})
}
