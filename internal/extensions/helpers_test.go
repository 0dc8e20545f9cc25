package extensions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/internal/extensions"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
	"github.com/aretw0/cadence/pkg/registry"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type call struct {
	step string
	args map[string]any
}

// recorder registers every built-in step and records the calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []call
	clean bool
}

func newRecorder(extra ...string) (*recorder, *registry.Steps) {
	r := &recorder{clean: true}
	steps := registry.NewSteps()
	for _, name := range append(extensions.Steps(), extra...) {
		steps.Register(name, func(_ context.Context, req registry.StepRequest) (bool, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, call{step: name, args: req.Args})
			if name == extensions.StepIsCleanFlaggedModificationsRequired {
				return r.clean, nil
			}
			return true, nil
		})
	}
	return r, steps
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.calls))
	for i, c := range r.calls {
		names[i] = c.step
	}
	return names
}

// argsOf returns the arguments of the first call to step.
func (r *recorder) argsOf(step string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.step == step {
			return c.args
		}
	}
	return nil
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func deps(store *memory.Store, steps *registry.Steps) analysis.Deps {
	return analysis.Deps{
		Flags:   store,
		Windows: store,
		Steps:   steps,
		Clock:   fsm.ClockFunc(func() time.Time { return t0 }),
	}
}

func setFlag(t *testing.T, store ports.FlagStore, key string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Update(ctx, func(w ports.FlagWriter) error {
		return w.Save(ctx, domain.Flag{Key: key, UpdatedAt: t0})
	}))
}

func hasFlag(t *testing.T, store ports.FlagStore, key string) bool {
	t.Helper()
	ctx := context.Background()
	var found bool
	require.NoError(t, store.View(ctx, func(r ports.FlagReader) error {
		_, err := r.Lookup(ctx, key)
		found = err == nil
		return nil
	}))
	return found
}

func addWindow(t *testing.T, store ports.WindowStore, machineID int, production bool) {
	t.Helper()
	require.NoError(t, store.AddWindow(context.Background(), domain.ProductionWindow{
		MachineID:  machineID,
		Begin:      t0.Add(-time.Hour),
		End:        t0.Add(time.Hour),
		Production: &production,
	}))
}
