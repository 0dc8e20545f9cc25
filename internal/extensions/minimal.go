package extensions

import (
	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/registry"
)

// MinimalName is the registration name of the fallback extension.
const MinimalName = "minimal"

// Minimal only runs the pending modifications. It applies to any context, so
// it wins when nothing with a higher priority initializes.
type Minimal[C scope[C]] struct {
	priority float64
	filter   machineFilter
	initial  fsm.State[C]
}

// NewMinimal returns a factory of Minimal extensions for contexts of type C.
func NewMinimal[C scope[C]](priority float64, machines []int) registry.Factory[C] {
	filter := newMachineFilter(machines)
	return func() registry.Extension[C] {
		return &Minimal[C]{priority: priority, filter: filter}
	}
}

func (e *Minimal[C]) Priority() float64 { return e.priority }

func (e *Minimal[C]) InitialState() fsm.State[C] { return e.initial }

func (e *Minimal[C]) Initialize(c C) bool {
	if !e.filter.match(c.Machine()) {
		return false
	}
	end := fsm.End[C]()
	e.initial = act(fsm.Named("PendingModifications"), StepPendingModifications, priorityArgs(0, 0), end, end, nil).build()
	return true
}

var (
	_ registry.Extension[*analysis.MachineAnalysis] = (*Minimal[*analysis.MachineAnalysis])(nil)
	_ registry.Extension[*analysis.GlobalAnalysis]  = (*Minimal[*analysis.GlobalAnalysis])(nil)
)
