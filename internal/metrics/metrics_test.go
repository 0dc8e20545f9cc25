package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/internal/metrics"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/registry"
	"github.com/aretw0/cadence/pkg/states"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	steps := registry.NewSteps()
	steps.Register("Ok", func(context.Context, registry.StepRequest) (bool, error) { return true, nil })
	steps.Register("Broken", func(context.Context, registry.StepRequest) (bool, error) {
		return false, errors.New("boom")
	})

	a := analysis.NewMachineAnalysis(domain.Machine{ID: 1, Monitored: true}, analysis.Deps{
		Steps:   steps,
		Options: []fsm.Option{fsm.WithHooks(m.Hooks())},
	})
	end := fsm.End[*analysis.MachineAnalysis]()
	broken := states.NewAction(fsm.Named("Broken").Perf("BrokenPerf"),
		analysis.StepAction[*analysis.MachineAnalysis]("Broken", 0, 0, nil), end,
		states.WithExceptionState(end))
	ok := states.NewAction(fsm.Named("Ok"),
		analysis.StepAction[*analysis.MachineAnalysis]("Ok", 0, 0, nil), fsm.State[*analysis.MachineAnalysis](broken))
	a.Bind(ok)

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "cadence_state_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per perf name")

	expected := `
# HELP cadence_runs_total Total number of finished runs by outcome
# TYPE cadence_runs_total counter
cadence_runs_total{scope="1",status="ended"} 1
# HELP cadence_state_errors_total Total number of failed state steps
# TYPE cadence_state_errors_total counter
cadence_state_errors_total{fault="unexpected",perf_name="BrokenPerf"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cadence_runs_total", "cadence_state_errors_total"))
}

func TestMetrics_RegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)
	_, err = metrics.New(reg)
	assert.Error(t, err)
}
