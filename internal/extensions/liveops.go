package extensions

import (
	"math"
	"time"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/registry"
	"github.com/aretw0/cadence/pkg/states"
)

// LiveOpsName is the registration name of the live operation extension.
const LiveOpsName = "liveops"

// LiveOpsPriority is the default priority of the live operation extension.
const LiveOpsPriority = 20.0

type machineState = fsm.State[*analysis.MachineAnalysis]

// LiveOps builds the graph of a monitored machine: an initialization, a catch-up
// branch on the machine flag, then a production or a non-production chain.
type LiveOps struct {
	priority float64
	settings LiveOpsSettings
	filter   machineFilter
	initial  machineState
}

var _ registry.Extension[*analysis.MachineAnalysis] = (*LiveOps)(nil)

// NewLiveOps returns a factory of LiveOps extensions restricted to machines.
func NewLiveOps(priority float64, settings LiveOpsSettings, machines []int) registry.Factory[*analysis.MachineAnalysis] {
	filter := newMachineFilter(machines)
	return func() registry.Extension[*analysis.MachineAnalysis] {
		return &LiveOps{priority: priority, settings: settings, filter: filter}
	}
}

func (e *LiveOps) Priority() float64 { return e.priority }

func (e *LiveOps) InitialState() machineState { return e.initial }

// Initialize builds the graph for a. It declines machines that are not monitored
// or that are filtered out.
func (e *LiveOps) Initialize(a *analysis.MachineAnalysis) bool {
	m := a.Machine()
	if !m.Monitored || !e.filter.match(m) {
		return false
	}
	productionSwitch := states.NewProductionSwitch(fsm.Named("ProductionSwitch"), a.Windows(), m, e.production(), e.notProduction(),
		states.WithOpenWindowRefresh[*analysis.MachineAnalysis](e.settings.OpenWindowRefresh))
	catchUpSwitch := states.NewCatchUpSwitch(fsm.Named("CatchUpSwitch"), a.Flags(), &m, e.catchUp(a), machineState(productionSwitch))
	e.initial = states.NewAction(fsm.Named("MachineActivityAnalysisInitialization"), analysis.InitializeMachine, machineState(catchUpSwitch))
	return true
}

func (e *LiveOps) cleanFlagged(end machineState) machineState {
	clean := act(fsm.Named("CleanFlaggedModifications"), StepCleanFlaggedModifications, nil, end, end, end).build()
	return states.NewCondition(fsm.Named("TestIsCleanFlaggedModificationsRequired"),
		analysis.StepPredicate[*analysis.MachineAnalysis](StepIsCleanFlaggedModificationsRequired, nil),
		clean, end, states.WithExceptionState(end))
}

// pending alternates between all, low and normal priority passes of the pending
// modifications, all three continuing to next. When boundPast is false the
// priorities only bound the present.
func (e *LiveOps) pending(next, maxTime machineState, localMax time.Duration, boundPast bool) (switchState, normalState machineState) {
	variant := func(perf string, priority int) machineState {
		past := 0
		if boundPast {
			past = priority
		}
		id := fsm.Named("PendingModifications").Perf(perf)
		return act(id, StepPendingModifications, priorityArgs(past, priority), next, next, maxTime).
			within(localMax, 0).
			build()
	}
	all := variant("PendingModificationsAll", 0)
	low := variant("PendingModificationsLow", e.settings.LowModificationPriority)
	normalState = variant("PendingModificationsNormal", e.settings.NormalModificationPriority)
	lowOrNormal := states.NewFrequency(fsm.Named("PendingModificationsSwitch").Perf("PendingModificationsLowSwitch"),
		e.settings.LowPriorityFrequency, low, normalState)
	switchState = states.NewFrequency(fsm.Named("PendingModificationsSwitch").Perf("PendingModificationsVeryLowSwitch"),
		e.settings.VeryLowPriorityFrequency, all, machineState(lowOrNormal))
	return switchState, normalState
}

func (e *LiveOps) production() machineState {
	end := fsm.End[*analysis.MachineAnalysis]()
	s := e.cleanFlagged(end)
	s = act(fsm.Named("ProcessingReasonSlots"), StepProcessingReasonSlots, nil, s, s, end).
		within(e.settings.ProcessingReasonSlotsMaxTime, 0).
		build()
	pendingSwitch, normal := e.pending(s, end, e.settings.PendingModificationsMaxTime, true)
	s = sequence(e.settings.Steps, pendingSwitch, normal)
	s = chain(fsm.Named("AutoSequence"), StepAutoSequence, s)
	s = chain(fsm.Named("Detection"), StepDetection, s)
	lastPeriod := map[string]any{ArgPeriod: e.settings.ReasonSlotsLastPeriod.String()}
	s = act(fsm.Named("ProcessingReasonSlots").Perf("ProcessingReasonSlotsLastPeriod"), StepProcessingReasonSlots, lastPeriod, s, s, s).build()
	s = chain(fsm.Named("Activity"), StepActivity, s)
	s = chain(fsm.Named("Production"), StepProduction, s)
	s = chain(fsm.Named("OperationSlotSplit"), StepOperationSlotSplit, s)
	return act(fsm.Named("MachineStateTemplate"), StepMachineStateTemplate, nil, s, s, nil).build()
}

func (e *LiveOps) notProduction() machineState {
	end := fsm.End[*analysis.MachineAnalysis]()
	s := e.cleanFlagged(end)
	s = act(fsm.Named("AutoSequence"), StepAutoSequence, nil, s, s, end).build()
	s = chain(fsm.Named("Detection"), StepDetection, s)
	s = chain(fsm.Named("ProcessingReasonSlots"), StepProcessingReasonSlots, s)
	fallback := act(fsm.Named("ProcessingReasonSlots").Perf("ProcessingReasonSlotsFallback"), StepProcessingReasonSlots, nil, end, end, end).build()
	activity := act(fsm.Named("Activity"), StepActivity, nil, s, fallback, s).build()
	s = sequence(e.settings.Steps, activity, activity)
	s, _ = e.pending(s, activity, 0, false)
	s = chain(fsm.Named("Production"), StepProduction, s)
	s = chain(fsm.Named("OperationSlotSplit"), StepOperationSlotSplit, s)
	return act(fsm.Named("MachineStateTemplate"), StepMachineStateTemplate, nil, s, s, nil).build()
}

// catchUp runs every step with a one day horizon, then clears the catch-up flag.
func (e *LiveOps) catchUp(a *analysis.MachineAnalysis) machineState {
	m := a.Machine()
	end := fsm.End[*analysis.MachineAnalysis]()
	budget := e.settings.CatchUpMaxTime
	step := func(name, stepName string, args map[string]any, next, maxTime machineState) machineState {
		return act(fsm.Named(name).Perf(name+"CatchUp"), stepName, args, next, next, maxTime).
			within(budget, budget).
			build()
	}
	unbounded := map[string]any{ArgMaxLoops: math.MaxInt}
	splitPeriod := map[string]any{ArgPeriod: e.settings.OperationSlotSplitPeriod.String()}

	var s machineState = states.NewDeleteCatchUp(fsm.Named("DeleteCatchUp"), a.Flags(), &m, end)
	s = step("CleanFlaggedModifications", StepCleanFlaggedModifications, nil, s, s)
	s = step("AutoSequence", StepAutoSequence, unbounded, s, end)
	s = step("Detection", StepDetection, unbounded, s, s)
	s = step("ProcessingReasonSlots", StepProcessingReasonSlots, unbounded, s, s)
	s = step("Activity", StepActivity, unbounded, s, s)
	s = sequence(e.settings.Steps, s, s)
	s = step("PendingModifications", StepPendingModifications, priorityArgs(0, 0), s, s)
	s = step("Production", StepProduction, nil, s, s)
	s = step("OperationSlotSplit", StepOperationSlotSplit, splitPeriod, s, s)
	return step("MachineStateTemplate", StepMachineStateTemplate, nil, s, nil)
}
