package extensions

import (
	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/registry"
	"github.com/aretw0/cadence/pkg/states"
)

// GlobalName is the registration name of the global extension.
const GlobalName = "global"

// GlobalPriority is the default priority of the global extension.
const GlobalPriority = 20.0

type globalState = fsm.State[*analysis.GlobalAnalysis]

// Global builds the graph of the machine-less context: templates, pending
// modifications and week numbers, or a catch-up pass while the global catch-up
// flag is stored.
type Global struct {
	priority float64
	settings GlobalSettings
	filter   machineFilter
	initial  globalState
}

var _ registry.Extension[*analysis.GlobalAnalysis] = (*Global)(nil)

func NewGlobal(priority float64, settings GlobalSettings, machines []int) registry.Factory[*analysis.GlobalAnalysis] {
	filter := newMachineFilter(machines)
	return func() registry.Extension[*analysis.GlobalAnalysis] {
		return &Global{priority: priority, settings: settings, filter: filter}
	}
}

func (e *Global) Priority() float64 { return e.priority }

func (e *Global) InitialState() globalState { return e.initial }

func (e *Global) Initialize(a *analysis.GlobalAnalysis) bool {
	if !e.filter.match(a.Machine()) {
		return false
	}
	e.initial = states.NewCatchUpSwitch(fsm.Named("CatchUpSwitch"), a.Flags(), nil, e.catchUp(a), e.live())
	return true
}

func (e *Global) live() globalState {
	end := fsm.End[*analysis.GlobalAnalysis]()
	var s globalState = chain(fsm.Named("WeekNumbers"), StepWeekNumbers, end)
	clean := act(fsm.Named("CleanFlaggedModifications"), StepCleanFlaggedModifications, nil, s, s, s).
		within(e.settings.CleanFlaggedMaxTime, 0).
		build()
	s = states.NewCondition(fsm.Named("TestIsCleanFlaggedModificationsRequired"),
		analysis.StepPredicate[*analysis.GlobalAnalysis](StepIsCleanFlaggedModificationsRequired, nil),
		clean, s, states.WithExceptionState(s))
	s = sequence(e.settings.Steps, s, s)

	pending := func(perf string, priority int) globalState {
		id := fsm.Named("PendingModifications").Perf(perf)
		return act(id, StepPendingModifications, priorityArgs(priority, priority), s, s, end).
			within(e.settings.PendingModificationsMaxTime, 0).
			build()
	}
	all := pending("PendingModificationsAll", 0)
	normal := pending("PendingModificationsNormal", e.settings.NormalModificationPriority)
	s = states.NewFrequency(fsm.Named("PendingModificationsSwitch"), e.settings.AllPriorityFrequency, all, normal)

	s = act(fsm.Named("ShiftTemplates"), StepShiftTemplates, nil, s, s, s).
		within(e.settings.TemplatesMaxTime, 0).
		build()
	return act(fsm.Named("DayTemplates"), StepDayTemplates, nil, s, s, nil).
		within(e.settings.TemplatesMaxTime, 0).
		build()
}

func (e *Global) catchUp(a *analysis.GlobalAnalysis) globalState {
	end := fsm.End[*analysis.GlobalAnalysis]()
	budget := e.settings.CatchUpMaxTime
	step := func(name, stepName string, args map[string]any, next globalState) globalState {
		return act(fsm.Named(name).Perf(name+"CatchUp"), stepName, args, next, next, next).
			within(budget, budget).
			build()
	}

	var s globalState = states.NewDeleteCatchUp(fsm.Named("DeleteCatchUp"), a.Flags(), nil, end)
	s = step("WeekNumbers", StepWeekNumbers, nil, s)
	s = step("CleanFlaggedModifications", StepCleanFlaggedModifications, nil, s)
	s = sequence(e.settings.Steps, s, s)
	s = step("PendingModifications", StepPendingModifications, priorityArgs(0, 0), s)
	s = step("ShiftTemplates", StepShiftTemplates, nil, s)
	return step("DayTemplates", StepDayTemplates, nil, s)
}
