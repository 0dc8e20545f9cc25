package states

import (
	"context"
	"fmt"

	"github.com/aretw0/cadence/pkg/fsm"
)

// NamedAction is one action of a SequenceState.
type NamedAction[C any] struct {
	Name   string
	Action Action[C]
}

// SequenceState runs a list of actions in order within a single step.
//
// The run budget is checked before each action: once exhausted, the state switches
// to the max-time state, or to next when none is set. An action returning false ends
// the run. When every action succeeded the state switches to next.
type SequenceState[C fsm.Context[C]] struct {
	fsm.Base[C]
	steps   []NamedAction[C]
	next    fsm.State[C]
	maxTime fsm.State[C]
}

func NewSequence[C fsm.Context[C]](id fsm.ID, steps []NamedAction[C], next fsm.State[C], opts ...Option[C]) *SequenceState[C] {
	cfg := buildConfig(opts)
	maxTime := cfg.maxTime
	if maxTime == nil {
		maxTime = next
	}
	return &SequenceState[C]{
		Base:    fsm.NewBase(id, cfg.exception),
		steps:   append([]NamedAction[C](nil), steps...),
		next:    next,
		maxTime: maxTime,
	}
}

// Len returns the number of actions of the sequence.
func (s *SequenceState[C]) Len() int { return len(s.steps) }

func (s *SequenceState[C]) Step(ctx context.Context, c C) error {
	for _, step := range s.steps {
		if budgetExhausted(c) {
			c.Logger().Debug("Analysis budget exhausted", "state", s.Name(), "before", step.Name)
			c.SwitchTo(s.maxTime)
			return nil
		}
		ok, err := step.Action(ctx, c)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		if !ok {
			c.SwitchToEndState()
			return nil
		}
	}
	c.SwitchTo(s.next)
	return nil
}
