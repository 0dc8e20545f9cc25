package fsm

import (
	"log/slog"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
)

// DefaultMaxTime is the run budget used when WithMaxTime is not given.
const DefaultMaxTime = 40 * time.Second

type settings struct {
	clock                Clock
	maxTime              time.Duration
	overrun              time.Duration
	maxSteps             int
	failOnStateException bool
	paused               func() bool
	interrupt            <-chan struct{}
	logger               *slog.Logger
	hooks                domain.LifecycleHooks
}

// Option configures a Machine.
type Option func(*settings)

// WithClock sets the run clock. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithMaxTime sets the wall-clock budget of one run. Zero or negative disables it.
func WithMaxTime(d time.Duration) Option {
	return func(s *settings) {
		s.maxTime = d
	}
}

// WithOverrun stops the run between steps once the clock passes the deadline by d.
func WithOverrun(d time.Duration) Option {
	return func(s *settings) {
		s.overrun = d
	}
}

// WithStepLimit faults the run after n steps. Zero disables the limit.
func WithStepLimit(n int) Option {
	return func(s *settings) {
		s.maxSteps = n
	}
}

// WithFailOnStateException makes a run that ended normally return an error when
// at least one step failure was routed to an exception state.
func WithFailOnStateException(enabled bool) Option {
	return func(s *settings) {
		s.failOnStateException = enabled
	}
}

// WithPauseCheck sets a predicate polled between steps. The run is interrupted
// as soon as it reports true.
func WithPauseCheck(paused func() bool) Option {
	return func(s *settings) {
		s.paused = paused
	}
}

// WithInterruptSource sets a channel that interrupts the run between steps once
// it is closed or receives a value.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(s *settings) {
		s.interrupt = ch
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHooks adds lifecycle hooks. Multiple calls are merged in order.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(h)
	}
}
