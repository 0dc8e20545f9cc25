package analysis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/registry"
	"github.com/aretw0/cadence/pkg/states"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func fixedClock() fsm.Clock {
	return fsm.ClockFunc(func() time.Time { return t0 })
}

func TestMachineAnalysis_RunBeforeBind(t *testing.T) {
	a := analysis.NewMachineAnalysis(domain.Machine{ID: 1, Monitored: true}, analysis.Deps{})
	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, analysis.ErrNotBound)
	assert.False(t, a.Bound())
	assert.Equal(t, domain.MaxTime, a.Deadline())
}

func TestGlobalAnalysis_UnboundUsesDepsClock(t *testing.T) {
	g := analysis.NewGlobalAnalysis(analysis.Deps{Clock: fixedClock()})
	_, err := g.Run(context.Background())
	assert.ErrorIs(t, err, analysis.ErrNotBound)
	assert.False(t, g.Bound())
	assert.Equal(t, t0, g.Now())
	assert.Equal(t, domain.MaxTime, g.Deadline())
	assert.Equal(t, t0.Add(time.Minute), g.StepDeadline(time.Minute, 0))
	assert.NotNil(t, g.Logger())

	g.Bind(fsm.End[*analysis.GlobalAnalysis]())
	assert.True(t, g.Bound())
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusEnded, res.Status)
}

func TestMachineAnalysis_InitializeRequiresMonitored(t *testing.T) {
	ctx := context.Background()

	ok, err := analysis.NewMachineAnalysis(domain.Machine{ID: 1, Monitored: true}, analysis.Deps{}).Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = analysis.NewMachineAnalysis(domain.Machine{ID: 2}, analysis.Deps{}).Initialize(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMachineAnalysis_RunsStepsWithDeadline(t *testing.T) {
	steps := registry.NewSteps()
	var got registry.StepRequest
	steps.Register("Activity", func(_ context.Context, req registry.StepRequest) (bool, error) {
		got = req
		return true, nil
	})

	a := analysis.NewMachineAnalysis(domain.Machine{ID: 3, Monitored: true}, analysis.Deps{
		Flags: memory.NewStore(),
		Steps: steps,
		Clock: fixedClock(),
	})
	end := fsm.End[*analysis.MachineAnalysis]()
	activity := states.NewAction(fsm.Named("Activity"),
		analysis.StepAction[*analysis.MachineAnalysis]("Activity", 10*time.Second, 0, map[string]any{"loops": 2}), end)
	initial := states.NewAction(fsm.Named("Initialization"), analysis.InitializeMachine, fsm.State[*analysis.MachineAnalysis](activity))
	a.Bind(initial, fsm.WithMaxTime(40*time.Second))

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusEnded, res.Status)
	assert.Equal(t, "3", res.Scope)
	assert.Equal(t, 3, got.Machine.ID)
	assert.Equal(t, t0.Add(10*time.Second), got.Deadline)
	assert.Equal(t, 2, got.Args["loops"])
}

func TestMachineAnalysis_UnknownStepRoutesToException(t *testing.T) {
	a := analysis.NewMachineAnalysis(domain.Machine{ID: 3, Monitored: true}, analysis.Deps{Clock: fixedClock()})
	end := fsm.End[*analysis.MachineAnalysis]()
	s := states.NewAction(fsm.Named("Missing"),
		analysis.StepAction[*analysis.MachineAnalysis]("Missing", 0, 0, nil), end,
		states.WithExceptionState(end))
	a.Bind(s)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Exceptions, 1)
	assert.ErrorIs(t, res.Exceptions[0], domain.ErrUnknownStep)
}

func TestMachineAnalysis_PauseInterruptsBetweenSteps(t *testing.T) {
	pause := &analysis.Pause{}
	steps := registry.NewSteps()
	steps.Register("Pauser", func(context.Context, registry.StepRequest) (bool, error) {
		pause.Request(42)
		return true, nil
	})
	ran := false
	steps.Register("Never", func(context.Context, registry.StepRequest) (bool, error) {
		ran = true
		return true, nil
	})

	a := analysis.NewMachineAnalysis(domain.Machine{ID: 3, Monitored: true}, analysis.Deps{Steps: steps, Pause: pause})
	end := fsm.End[*analysis.MachineAnalysis]()
	never := states.NewAction(fsm.Named("Never"), analysis.StepAction[*analysis.MachineAnalysis]("Never", 0, 0, nil), end)
	pauser := states.NewAction(fsm.Named("Pauser"),
		analysis.StepAction[*analysis.MachineAnalysis]("Pauser", 0, 0, nil), fsm.State[*analysis.MachineAnalysis](never))
	a.Bind(pauser)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusInterrupted, res.Status)
	assert.False(t, ran)

	require.NoError(t, pause.Release(42))
	res, err = a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusInterrupted, res.Status, "the first step takes the pause again")
}

func TestGlobalAnalysis_Scope(t *testing.T) {
	steps := registry.NewSteps()
	var got registry.StepRequest
	steps.Register("PendingModifications", func(_ context.Context, req registry.StepRequest) (bool, error) {
		got = req
		return true, nil
	})

	g := analysis.NewGlobalAnalysis(analysis.Deps{Steps: steps, Clock: fixedClock()})
	end := fsm.End[*analysis.GlobalAnalysis]()
	g.Bind(states.NewAction(fsm.Named("PendingModifications"),
		analysis.StepAction[*analysis.GlobalAnalysis]("PendingModifications", 0, 0, nil), end),
		fsm.WithMaxTime(time.Minute))

	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "global", res.Scope)
	assert.True(t, got.Machine.IsGlobal())
	assert.Equal(t, t0.Add(time.Minute), got.Deadline, "no local bound: the run deadline applies")
}
