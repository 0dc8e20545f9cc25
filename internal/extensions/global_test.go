package extensions_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/internal/config"
	"github.com/aretw0/cadence/internal/extensions"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
)

func bindGlobal(t *testing.T, a *analysis.GlobalAnalysis) {
	t.Helper()
	catalog, err := extensions.New([]config.Extension{{Name: extensions.GlobalName}})
	require.NoError(t, err)
	res, err := catalog.Global.Resolve(a)
	require.NoError(t, err)
	a.Bind(res.Extension.InitialState())
}

func TestGlobal_Live(t *testing.T) {
	store := memory.NewStore()
	rec, steps := newRecorder()
	a := analysis.NewGlobalAnalysis(deps(store, steps))
	bindGlobal(t, a)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fsm.StatusEnded, res.Status)
	assert.Equal(t, []string{
		extensions.StepDayTemplates,
		extensions.StepShiftTemplates,
		extensions.StepPendingModifications,
		extensions.StepIsCleanFlaggedModificationsRequired,
		extensions.StepCleanFlaggedModifications,
		extensions.StepWeekNumbers,
	}, rec.names())

	rec.reset()
	rec.clean = false
	_, err = a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, rec.argsOf(extensions.StepPendingModifications)[extensions.ArgMinPresentPriority])
	assert.NotContains(t, rec.names(), extensions.StepCleanFlaggedModifications)
	assert.Contains(t, rec.names(), extensions.StepWeekNumbers)
}

func TestGlobal_CatchUp(t *testing.T) {
	store := memory.NewStore()
	rec, steps := newRecorder()
	setFlag(t, store, domain.CatchUpGlobalKey)
	a := analysis.NewGlobalAnalysis(deps(store, steps))
	bindGlobal(t, a)

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		extensions.StepDayTemplates,
		extensions.StepShiftTemplates,
		extensions.StepPendingModifications,
		extensions.StepCleanFlaggedModifications,
		extensions.StepWeekNumbers,
	}, rec.names())
	assert.False(t, hasFlag(t, store, domain.CatchUpGlobalKey))
}

func TestGlobal_Filter(t *testing.T) {
	_, steps := newRecorder()
	a := analysis.NewGlobalAnalysis(deps(memory.NewStore(), steps))
	assert.False(t, extensions.NewGlobal(extensions.GlobalPriority, extensions.GlobalSettings{}, []int{3})().Initialize(a))
	assert.True(t, extensions.NewGlobal(extensions.GlobalPriority, extensions.GlobalSettings{}, []int{domain.GlobalMachineID})().Initialize(a))
}
