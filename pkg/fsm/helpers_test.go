package fsm_test

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cadence/pkg/fsm"
)

type testCtx struct {
	m       *fsm.Machine[*testCtx]
	visited []string
}

func (c *testCtx) SwitchTo(s fsm.State[*testCtx]) { c.m.SwitchTo(s) }
func (c *testCtx) SwitchToEndState()              { c.m.SwitchToEndState() }
func (c *testCtx) Now() time.Time                 { return c.m.Now() }
func (c *testCtx) Deadline() time.Time            { return c.m.Deadline() }
func (c *testCtx) Logger() *slog.Logger           { return c.m.Logger() }

type funcState struct {
	fsm.Base[*testCtx]
	fn func(ctx context.Context, c *testCtx) error
}

func newState(name string, exception fsm.State[*testCtx], fn func(ctx context.Context, c *testCtx) error) *funcState {
	return &funcState{Base: fsm.NewBase(fsm.Named(name), exception), fn: fn}
}

func (s *funcState) Step(ctx context.Context, c *testCtx) error {
	c.visited = append(c.visited, s.Name())
	return s.fn(ctx, c)
}

func goTo(next fsm.State[*testCtx]) func(context.Context, *testCtx) error {
	return func(_ context.Context, c *testCtx) error {
		c.SwitchTo(next)
		return nil
	}
}

func fail(err error) func(context.Context, *testCtx) error {
	return func(context.Context, *testCtx) error { return err }
}

func run(t interface{ Helper() }, initial fsm.State[*testCtx], opts ...fsm.Option) (*testCtx, fsm.Result, error) {
	t.Helper()
	c := &testCtx{}
	c.m = fsm.NewMachine[*testCtx]("test", initial, opts...)
	res, err := c.m.Run(context.Background(), c)
	return c, res, err
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }
