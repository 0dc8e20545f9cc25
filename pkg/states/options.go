package states

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/fsm"
)

// Action is a unit of analysis work. Returning false ends the run.
type Action[C any] func(ctx context.Context, c C) (bool, error)

// Predicate decides a branch.
type Predicate[C any] func(ctx context.Context, c C) (bool, error)

type config[C any] struct {
	exception fsm.State[C]
	maxTime   fsm.State[C]
	refresh   time.Duration
}

// Option configures the optional transitions of a state.
type Option[C any] func(*config[C])

// WithExceptionState sets the state the driver switches to when Step fails unexpectedly.
func WithExceptionState[C any](s fsm.State[C]) Option[C] {
	return func(cfg *config[C]) {
		cfg.exception = s
	}
}

// WithMaxTimeState sets the state switched to once the run budget is exhausted.
func WithMaxTimeState[C any](s fsm.State[C]) Option[C] {
	return func(cfg *config[C]) {
		cfg.maxTime = s
	}
}

// WithOpenWindowRefresh bounds how long a ProductionSwitchState trusts a window that
// has no upper bound yet. Defaults to DefaultOpenWindowRefresh.
func WithOpenWindowRefresh[C any](d time.Duration) Option[C] {
	return func(cfg *config[C]) {
		cfg.refresh = d
	}
}

func buildConfig[C any](opts []Option[C]) config[C] {
	var cfg config[C]
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// budgetExhausted reports whether the run clock reached the run deadline.
func budgetExhausted[C fsm.Context[C]](c C) bool {
	return !c.Now().Before(c.Deadline())
}

// escalate logs a failed store access and returns err unchanged. Stop requests are
// logged at Error, anything else at Fatal.
func escalate(ctx context.Context, logger *slog.Logger, msg string, err error) error {
	switch fsm.Classify(err) {
	case fsm.FaultInterrupt:
		logger.Info(msg, "err", err)
	case fsm.FaultCancel, fsm.FaultAbort:
		logger.Error(msg, "err", err)
	default:
		logging.Fatal(ctx, logger, msg, "err", err)
	}
	return err
}
