package states

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/cadence/pkg/fsm"
)

// FrequencyState switches to a frequent state at most once per period, and to a
// default state otherwise. The first step always picks the frequent state.
type FrequencyState[C fsm.Context[C]] struct {
	fsm.Base[C]
	every    time.Duration
	frequent fsm.State[C]
	fallback fsm.State[C]

	mu   sync.Mutex
	last time.Time
}

func NewFrequency[C fsm.Context[C]](id fsm.ID, every time.Duration, frequent, fallback fsm.State[C], opts ...Option[C]) *FrequencyState[C] {
	cfg := buildConfig(opts)
	return &FrequencyState[C]{
		Base:     fsm.NewBase(id, cfg.exception),
		every:    every,
		frequent: frequent,
		fallback: fallback,
	}
}

func (s *FrequencyState[C]) Step(_ context.Context, c C) error {
	now := c.Now()

	s.mu.Lock()
	pick := s.last.IsZero() || now.Sub(s.last) >= s.every
	if pick {
		s.last = now
	}
	s.mu.Unlock()

	if pick {
		c.SwitchTo(s.frequent)
	} else {
		c.SwitchTo(s.fallback)
	}
	return nil
}
