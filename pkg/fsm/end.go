package fsm

import "context"

// EndState is the distinguished terminal state. Switching to it ends the run
// without stepping it.
type EndState[C Context[C]] struct{}

// End returns the terminal state for context type C.
func End[C Context[C]]() State[C] {
	return EndState[C]{}
}

func (EndState[C]) Name() string { return "End" }

func (EndState[C]) PerfName() string { return "" }

func (EndState[C]) ExceptionState() State[C] { return nil }

// Step ends the run. The driver never calls it, it only matters when an end
// state is stepped outside a Machine.
func (EndState[C]) Step(_ context.Context, c C) error {
	c.SwitchToEndState()
	return nil
}

func (EndState[C]) terminal() {}

type terminal interface {
	terminal()
}

// IsEnd reports whether s ends the run when switched to.
func IsEnd[C any](s State[C]) bool {
	if s == nil {
		return true
	}
	_, ok := s.(terminal)
	return ok
}
