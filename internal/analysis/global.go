package analysis

import (
	"context"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
)

// GlobalAnalysis is the machine-less analysis context.
type GlobalAnalysis struct {
	driver[*GlobalAnalysis]
}

var _ fsm.Context[*GlobalAnalysis] = (*GlobalAnalysis)(nil)

func NewGlobalAnalysis(deps Deps) *GlobalAnalysis {
	return &GlobalAnalysis{driver: newDriver[*GlobalAnalysis](domain.Machine{ID: domain.GlobalMachineID}, deps)}
}

// Run runs the bound state graph once.
func (a *GlobalAnalysis) Run(ctx context.Context) (fsm.Result, error) {
	return a.run(ctx, a)
}
