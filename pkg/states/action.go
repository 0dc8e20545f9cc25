package states

import (
	"context"

	"github.com/aretw0/cadence/pkg/fsm"
)

// ActionState runs an Action and branches on its result and on the run budget.
type ActionState[C fsm.Context[C]] struct {
	fsm.Base[C]
	action  Action[C]
	next    fsm.State[C]
	maxTime fsm.State[C]
}

// NewAction returns a state running action, then switching to next.
//
// A false result ends the run. With WithMaxTimeState, a true result switches to the
// max-time state instead of next once the run budget is exhausted.
func NewAction[C fsm.Context[C]](id fsm.ID, action Action[C], next fsm.State[C], opts ...Option[C]) *ActionState[C] {
	cfg := buildConfig(opts)
	return &ActionState[C]{
		Base:    fsm.NewBase(id, cfg.exception),
		action:  action,
		next:    next,
		maxTime: cfg.maxTime,
	}
}

func (s *ActionState[C]) Step(ctx context.Context, c C) error {
	ok, err := s.action(ctx, c)
	if err != nil {
		return err
	}
	switch {
	case !ok:
		c.SwitchToEndState()
	case s.maxTime != nil && budgetExhausted(c):
		c.Logger().Debug("Analysis budget exhausted", "state", s.Name(), "next", s.maxTime.Name())
		c.SwitchTo(s.maxTime)
	default:
		c.SwitchTo(s.next)
	}
	return nil
}
