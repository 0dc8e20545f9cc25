package states_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
	"github.com/aretw0/cadence/pkg/states"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// stepCtx records the transition requested by a single Step.
type stepCtx struct {
	now      time.Time
	deadline time.Time
	next     fsm.State[*stepCtx]
	ended    bool
	switches int
	logs     bytes.Buffer
	logger   *slog.Logger
}

func newStepCtx() *stepCtx {
	p := &stepCtx{now: t0, deadline: t0.Add(time.Hour)}
	p.logger = logging.NewWithWriter(&p.logs, slog.LevelDebug)
	return p
}

// SwitchTo follows fsm.Context: an end state ends the run.
func (p *stepCtx) SwitchTo(s fsm.State[*stepCtx]) {
	if fsm.IsEnd(s) {
		p.SwitchToEndState()
		return
	}
	p.switches++
	p.next = s
	p.ended = false
}

func (p *stepCtx) SwitchToEndState() {
	p.switches++
	p.next = nil
	p.ended = true
}

func (p *stepCtx) Now() time.Time       { return p.now }
func (p *stepCtx) Deadline() time.Time  { return p.deadline }
func (p *stepCtx) Logger() *slog.Logger { return p.logger }

// marker is a leaf state used as a transition target.
type marker struct {
	fsm.Base[*stepCtx]
}

func newMarker(name string) *marker {
	return &marker{Base: fsm.NewBase[*stepCtx](fsm.Named(name), nil)}
}

func (m *marker) Step(_ context.Context, p *stepCtx) error {
	p.SwitchToEndState()
	return nil
}

func always(result bool) states.Action[*stepCtx] {
	return func(context.Context, *stepCtx) (bool, error) { return result, nil }
}

// countingWindows wraps a WindowStore and counts FindCovering calls.
type countingWindows struct {
	ports.WindowStore
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingWindows) FindCovering(ctx context.Context, machineID int, at time.Time) (*domain.ProductionWindow, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.WindowStore.FindCovering(ctx, machineID, at)
}

func (c *countingWindows) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// failingFlags is a FlagStore whose transactions fail with err.
type failingFlags struct {
	err error
}

func (f failingFlags) View(context.Context, func(ports.FlagReader) error) error   { return f.err }
func (f failingFlags) Update(context.Context, func(ports.FlagWriter) error) error { return f.err }
