package states

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
)

// DefaultOpenWindowRefresh is how long a decision derived from an open window is reused.
const DefaultOpenWindowRefresh = time.Minute

// ProductionSwitchState branches on the production window covering the current time.
//
// A classified window is cached until its upper bound, so that the store is queried
// at most once per window. An open window may be closed by the next slot at any time,
// so it is only cached for the refresh period. A missing window routes to
// notProduction and an unclassified one to production, neither being cached.
type ProductionSwitchState[C fsm.Context[C]] struct {
	fsm.Base[C]
	windows       ports.WindowStore
	machine       domain.Machine
	production    fsm.State[C]
	notProduction fsm.State[C]
	refresh       time.Duration

	mu     sync.Mutex
	cached fsm.State[C]
	limit  time.Time
}

func NewProductionSwitch[C fsm.Context[C]](id fsm.ID, windows ports.WindowStore, machine domain.Machine, production, notProduction fsm.State[C], opts ...Option[C]) *ProductionSwitchState[C] {
	cfg := buildConfig(opts)
	refresh := cfg.refresh
	if refresh <= 0 {
		refresh = DefaultOpenWindowRefresh
	}
	return &ProductionSwitchState[C]{
		Base:          fsm.NewBase(id, cfg.exception),
		windows:       windows,
		machine:       machine,
		production:    production,
		notProduction: notProduction,
		refresh:       refresh,
	}
}

// CachedUntil returns the instant until which the cached decision is reused.
// It is the zero time while nothing is cached.
func (s *ProductionSwitchState[C]) CachedUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

func (s *ProductionSwitchState[C]) Step(ctx context.Context, c C) error {
	now := c.Now()

	s.mu.Lock()
	if now.Before(s.limit) {
		next := s.cached
		s.mu.Unlock()
		c.SwitchTo(next)
		return nil
	}
	s.mu.Unlock()

	logger := c.Logger().With("state", s.Name(), "machine", s.machine.Label(), "at", now)
	w, err := s.windows.FindCovering(ctx, s.machine.ID, now)
	switch {
	case errors.Is(err, domain.ErrWindowNotFound):
		logger.Error("No production window covers the current time, fall back to not production")
		c.SwitchTo(s.notProduction)
		return nil
	case err != nil:
		return escalate(ctx, logger, "Production window lookup failed", err)
	case !w.Classified():
		logger.Error("Production window is not classified, fall back to production", "begin", w.Begin)
		c.SwitchTo(s.production)
		return nil
	}

	next := s.notProduction
	if *w.Production {
		next = s.production
	}
	s.mu.Lock()
	s.cached = next
	s.limit = w.Limit()
	if w.End.IsZero() {
		s.limit = now.Add(s.refresh)
	}
	s.mu.Unlock()

	c.SwitchTo(next)
	return nil
}
