package states

import (
	"context"

	"github.com/aretw0/cadence/pkg/fsm"
)

// ConditionState switches to one of two states depending on a predicate.
type ConditionState[C fsm.Context[C]] struct {
	fsm.Base[C]
	predicate Predicate[C]
	onTrue    fsm.State[C]
	onFalse   fsm.State[C]
}

func NewCondition[C fsm.Context[C]](id fsm.ID, predicate Predicate[C], onTrue, onFalse fsm.State[C], opts ...Option[C]) *ConditionState[C] {
	cfg := buildConfig(opts)
	return &ConditionState[C]{
		Base:      fsm.NewBase(id, cfg.exception),
		predicate: predicate,
		onTrue:    onTrue,
		onFalse:   onFalse,
	}
}

func (s *ConditionState[C]) Step(ctx context.Context, c C) error {
	ok, err := s.predicate(ctx, c)
	if err != nil {
		return err
	}
	if ok {
		c.SwitchTo(s.onTrue)
	} else {
		c.SwitchTo(s.onFalse)
	}
	return nil
}
