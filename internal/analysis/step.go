package analysis

import (
	"context"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/registry"
	"github.com/aretw0/cadence/pkg/states"
)

// Scope is what a registered analysis step needs from its context.
type Scope interface {
	Machine() domain.Machine
	Steps() *registry.Steps
	Deadline() time.Time
	StepDeadline(localMax, localMin time.Duration) time.Time
}

// StepAction returns an action running the registered step name. The step deadline
// follows fsm.MaxAnalysisTime with the given local bounds; a zero localMax means the
// step is only bounded by the run deadline.
func StepAction[C Scope](name string, localMax, localMin time.Duration, args map[string]any) states.Action[C] {
	return func(ctx context.Context, c C) (bool, error) {
		deadline := c.Deadline()
		if localMax > 0 {
			deadline = c.StepDeadline(localMax, localMin)
		}
		return c.Steps().Run(ctx, name, registry.StepRequest{
			Machine:  c.Machine(),
			Deadline: deadline,
			Args:     args,
		})
	}
}

// StepPredicate is StepAction used as a branch condition.
func StepPredicate[C Scope](name string, args map[string]any) states.Predicate[C] {
	return states.Predicate[C](StepAction[C](name, 0, 0, args))
}
