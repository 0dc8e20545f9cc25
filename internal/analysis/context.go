package analysis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
	"github.com/aretw0/cadence/pkg/registry"
)

// ErrNotBound is returned by Run before the context was bound to a state graph.
var ErrNotBound = errors.New("analysis context has no state graph")

// Deps are the collaborators shared by every analysis context.
type Deps struct {
	Flags   ports.FlagStore
	Windows ports.WindowStore
	Steps   *registry.Steps
	Pause   *Pause
	Logger  *slog.Logger
	Clock   fsm.Clock
	// Options are applied to the driver of every run, after the defaults.
	Options []fsm.Option
}

type core struct {
	deps    Deps
	machine domain.Machine
	logger  *slog.Logger
}

func newCore(machine domain.Machine, deps Deps) core {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = fsm.SystemClock
	}
	if deps.Steps == nil {
		deps.Steps = registry.NewSteps()
	}
	return core{
		deps:    deps,
		machine: machine,
		logger:  deps.Logger.With("machine", machine.Label()),
	}
}

// Machine returns the analyzed machine. It is the zero Machine for the global context.
func (c *core) Machine() domain.Machine { return c.machine }

// Flags returns the flag store.
func (c *core) Flags() ports.FlagStore { return c.deps.Flags }

// Windows returns the production window store.
func (c *core) Windows() ports.WindowStore { return c.deps.Windows }

// Steps returns the analysis step registry.
func (c *core) Steps() *registry.Steps { return c.deps.Steps }

func (c *core) driverOptions(opts []fsm.Option) []fsm.Option {
	base := []fsm.Option{fsm.WithLogger(c.logger), fsm.WithClock(c.deps.Clock)}
	if c.deps.Pause != nil {
		base = append(base, fsm.WithPauseCheck(c.deps.Pause.Requested))
	}
	base = append(base, c.deps.Options...)
	return append(base, opts...)
}

// driver binds a context of type C to its state graph. The analysis contexts embed
// it and only add Run, which needs the concrete context.
type driver[C any] struct {
	core
	m *fsm.Machine[C]
}

func newDriver[C any](machine domain.Machine, deps Deps) driver[C] {
	return driver[C]{core: newCore(machine, deps)}
}

// Bind sets the state graph the context runs.
func (d *driver[C]) Bind(initial fsm.State[C], opts ...fsm.Option) {
	d.m = fsm.NewMachine(d.machine.Label(), initial, d.driverOptions(opts)...)
}

// Bound reports whether Bind was called.
func (d *driver[C]) Bound() bool { return d.m != nil }

func (d *driver[C]) run(ctx context.Context, c C) (fsm.Result, error) {
	if d.m == nil {
		return fsm.Result{}, ErrNotBound
	}
	return d.m.Run(ctx, c)
}

func (d *driver[C]) SwitchTo(next fsm.State[C]) { d.m.SwitchTo(next) }

func (d *driver[C]) SwitchToEndState() { d.m.SwitchToEndState() }

func (d *driver[C]) Now() time.Time {
	if d.m == nil {
		return d.deps.Clock.Now()
	}
	return d.m.Now()
}

func (d *driver[C]) Deadline() time.Time {
	if d.m == nil {
		return domain.MaxTime
	}
	return d.m.Deadline()
}

// StepDeadline returns the ceiling of a step that may last between localMin and localMax.
func (d *driver[C]) StepDeadline(localMax, localMin time.Duration) time.Time {
	if d.m == nil {
		return d.Now().Add(localMax)
	}
	return d.m.StepDeadline(localMax, localMin)
}

func (d *driver[C]) Logger() *slog.Logger { return d.logger }
