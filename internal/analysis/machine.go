package analysis

import (
	"context"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
)

// MachineAnalysis is the analysis context of one monitored machine.
type MachineAnalysis struct {
	driver[*MachineAnalysis]
}

var _ fsm.Context[*MachineAnalysis] = (*MachineAnalysis)(nil)

// NewMachineAnalysis returns an unbound context for machine.
func NewMachineAnalysis(machine domain.Machine, deps Deps) *MachineAnalysis {
	return &MachineAnalysis{driver: newDriver[*MachineAnalysis](machine, deps)}
}

// Run runs the bound state graph once.
func (a *MachineAnalysis) Run(ctx context.Context) (fsm.Result, error) {
	return a.run(ctx, a)
}

// InitializeMachine is the first action of a machine graph.
func InitializeMachine(ctx context.Context, a *MachineAnalysis) (bool, error) {
	return a.Initialize(ctx)
}

// Initialize prepares a run. It returns false for a machine that is no longer monitored.
func (a *MachineAnalysis) Initialize(ctx context.Context) (bool, error) {
	if !a.machine.Monitored {
		a.logger.Warn("Machine is not monitored, skip the analysis")
		return false, nil
	}
	return true, nil
}
