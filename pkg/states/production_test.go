package states_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/states"
)

func newProductionSwitch(t *testing.T, windows ...domain.ProductionWindow) (*states.ProductionSwitchState[*stepCtx], *countingWindows, *marker, *marker) {
	t.Helper()
	store := memory.NewStore()
	for _, w := range windows {
		require.NoError(t, store.AddWindow(context.Background(), w))
	}
	counting := &countingWindows{WindowStore: store}
	production := newMarker("production")
	notProduction := newMarker("not-production")
	s := states.NewProductionSwitch(fsm.Named("ProductionSwitch"), counting, domain.Machine{ID: 7},
		fsm.State[*stepCtx](production), fsm.State[*stepCtx](notProduction))
	return s, counting, production, notProduction
}

func stepAt(t *testing.T, s fsm.State[*stepCtx], at time.Time) *stepCtx {
	t.Helper()
	p := newStepCtx()
	p.now = at
	require.NoError(t, s.Step(context.Background(), p))
	return p
}

func TestProductionSwitch_CacheValidity(t *testing.T) {
	yes := true
	s, counting, production, notProduction := newProductionSwitch(t,
		domain.ProductionWindow{MachineID: 7, Begin: t0, End: t0.Add(time.Hour), Production: &yes},
	)
	assert.True(t, s.CachedUntil().IsZero())

	p := stepAt(t, s, t0.Add(time.Minute))
	assert.Same(t, production, p.next)
	assert.Equal(t, 1, counting.Calls())
	assert.True(t, s.CachedUntil().Equal(t0.Add(time.Hour)))

	p = stepAt(t, s, t0.Add(59*time.Minute))
	assert.Same(t, production, p.next)
	assert.Equal(t, 1, counting.Calls(), "cached decision is reused without a query")

	// At the upper bound the cache is stale and no window covers the instant.
	p = stepAt(t, s, t0.Add(time.Hour))
	assert.Same(t, notProduction, p.next)
	assert.Equal(t, 2, counting.Calls(), "exactly one query once the cache expired")
}

func TestProductionSwitch_RefreshesToNextWindow(t *testing.T) {
	yes, no := true, false
	s, counting, production, notProduction := newProductionSwitch(t,
		domain.ProductionWindow{MachineID: 7, Begin: t0, End: t0.Add(time.Hour), Production: &yes},
		domain.ProductionWindow{MachineID: 7, Begin: t0.Add(time.Hour), End: t0.Add(3 * time.Hour), Production: &no},
	)

	assert.Same(t, production, stepAt(t, s, t0).next)
	assert.Same(t, notProduction, stepAt(t, s, t0.Add(time.Hour)).next)
	assert.Same(t, notProduction, stepAt(t, s, t0.Add(2*time.Hour)).next)
	assert.Equal(t, 2, counting.Calls())
	assert.True(t, s.CachedUntil().Equal(t0.Add(3*time.Hour)))
}

func TestProductionSwitch_OpenWindowRefreshed(t *testing.T) {
	no := false
	s, counting, _, notProduction := newProductionSwitch(t,
		domain.ProductionWindow{MachineID: 7, Begin: t0, Production: &no},
	)

	assert.Same(t, notProduction, stepAt(t, s, t0).next)
	assert.True(t, s.CachedUntil().Equal(t0.Add(states.DefaultOpenWindowRefresh)))
	assert.Same(t, notProduction, stepAt(t, s, t0.Add(30*time.Second)).next)
	assert.Equal(t, 1, counting.Calls())

	assert.Same(t, notProduction, stepAt(t, s, t0.AddDate(1, 0, 0)).next)
	assert.Equal(t, 2, counting.Calls(), "an open window is queried again after the refresh period")
}

func TestProductionSwitch_OpenWindowClosedByNextSlot(t *testing.T) {
	yes, no := true, false
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.AddWindow(ctx, domain.ProductionWindow{MachineID: 7, Begin: t0, Production: &yes}))

	production := newMarker("production")
	notProduction := newMarker("not-production")
	s := states.NewProductionSwitch(fsm.Named("ProductionSwitch"), store, domain.Machine{ID: 7},
		fsm.State[*stepCtx](production), fsm.State[*stepCtx](notProduction),
		states.WithOpenWindowRefresh[*stepCtx](10*time.Minute))

	assert.Same(t, production, stepAt(t, s, t0.Add(time.Minute)).next)
	assert.True(t, s.CachedUntil().Equal(t0.Add(11*time.Minute)))

	require.NoError(t, store.AddWindow(ctx, domain.ProductionWindow{MachineID: 7, Begin: t0.Add(time.Hour), Production: &no}))

	assert.Same(t, production, stepAt(t, s, t0.Add(5*time.Minute)).next, "still within the refresh period")
	assert.Same(t, notProduction, stepAt(t, s, t0.Add(5*time.Hour)).next, "the new slot is picked up")
}

func TestProductionSwitch_Fallbacks(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		s, counting, _, notProduction := newProductionSwitch(t)

		p := stepAt(t, s, t0)
		assert.Same(t, notProduction, p.next)
		assert.Contains(t, p.logs.String(), "level=ERROR")

		stepAt(t, s, t0)
		assert.Equal(t, 2, counting.Calls(), "missing window is not cached")
		assert.True(t, s.CachedUntil().IsZero())
	})

	t.Run("Unclassified", func(t *testing.T) {
		s, counting, production, _ := newProductionSwitch(t,
			domain.ProductionWindow{MachineID: 7, Begin: t0, End: t0.Add(time.Hour)},
		)

		p := stepAt(t, s, t0)
		assert.Same(t, production, p.next)
		assert.Contains(t, p.logs.String(), "level=ERROR")

		stepAt(t, s, t0)
		assert.Equal(t, 2, counting.Calls(), "unclassified window is not cached")
	})

	t.Run("CancelledLookup", func(t *testing.T) {
		s, _, _, _ := newProductionSwitch(t,
			domain.ProductionWindow{MachineID: 7, Begin: t0, End: t0.Add(time.Hour)},
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := newStepCtx()
		err := s.Step(ctx, p)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, fsm.FaultCancel, fsm.Classify(err))
		assert.Equal(t, 0, p.switches, "a cancelled lookup is not routed to not production")
	})

	t.Run("StoreError", func(t *testing.T) {
		s, counting, _, _ := newProductionSwitch(t)
		counting.err = errors.New("timeout talking to database")

		p := newStepCtx()
		err := s.Step(context.Background(), p)
		assert.Same(t, counting.err, err)
		assert.Equal(t, 0, p.switches)
		assert.Contains(t, p.logs.String(), "level=FATAL")
	})
}
