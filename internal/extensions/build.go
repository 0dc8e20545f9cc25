package extensions

import (
	"time"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/states"
)

// scope is satisfied by both analysis contexts.
type scope[C any] interface {
	fsm.Context[C]
	analysis.Scope
}

// stepState is the usual shape of an analysis state: run a registered step, then
// continue to next, recover to exception and yield to maxTime once the budget is
// spent. A nil maxTime disables the budget check.
type stepState[C scope[C]] struct {
	id        fsm.ID
	step      string
	args      map[string]any
	localMax  time.Duration
	localMin  time.Duration
	next      fsm.State[C]
	exception fsm.State[C]
	maxTime   fsm.State[C]
}

func act[C scope[C]](id fsm.ID, step string, args map[string]any, next, exception, maxTime fsm.State[C]) stepState[C] {
	return stepState[C]{id: id, step: step, args: args, next: next, exception: exception, maxTime: maxTime}
}

// within bounds the step deadline, see fsm.MaxAnalysisTime.
func (s stepState[C]) within(localMax, localMin time.Duration) stepState[C] {
	s.localMax = localMax
	s.localMin = localMin
	return s
}

func (s stepState[C]) build() fsm.State[C] {
	opts := []states.Option[C]{states.WithExceptionState(s.exception)}
	if s.maxTime != nil {
		opts = append(opts, states.WithMaxTimeState(s.maxTime))
	}
	action := analysis.StepAction[C](s.step, s.localMax, s.localMin, s.args)
	return states.NewAction(s.id, action, s.next, opts...)
}

// chain builds a step state that continues, recovers and yields to next.
func chain[C scope[C]](id fsm.ID, step string, next fsm.State[C]) fsm.State[C] {
	return act(id, step, nil, next, next, next).build()
}

// sequence runs the extra configured steps, yielding to maxTime once the budget is spent.
func sequence[C scope[C]](names []string, next, maxTime fsm.State[C]) fsm.State[C] {
	if len(names) == 0 {
		return next
	}
	actions := make([]states.NamedAction[C], len(names))
	for i, name := range names {
		actions[i] = states.NamedAction[C]{Name: name, Action: analysis.StepAction[C](name, 0, 0, nil)}
	}
	return states.NewSequence(fsm.Named("ExtensionSteps"), actions, next,
		states.WithMaxTimeState(maxTime), states.WithExceptionState(next))
}

func priorityArgs(past, present int) map[string]any {
	return map[string]any{ArgMinPastPriority: past, ArgMinPresentPriority: present}
}
