package states

import (
	"context"
	"errors"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
)

// DeleteFlagState removes a persisted flag, typically the catch-up flag once the
// backlog is processed, and switches to next whether the flag existed or not.
type DeleteFlagState[C fsm.Context[C]] struct {
	fsm.Base[C]
	store   ports.FlagStore
	key     string
	machine *domain.Machine
	next    fsm.State[C]
}

func NewDeleteFlag[C fsm.Context[C]](id fsm.ID, store ports.FlagStore, key string, machine *domain.Machine, next fsm.State[C], opts ...Option[C]) *DeleteFlagState[C] {
	cfg := buildConfig(opts)
	return &DeleteFlagState[C]{
		Base:    fsm.NewBase(id, cfg.exception),
		store:   store,
		key:     key,
		machine: machine,
		next:    next,
	}
}

// NewDeleteCatchUp returns a DeleteFlagState on the catch-up flag of machine, or on
// the global catch-up flag when machine is nil.
func NewDeleteCatchUp[C fsm.Context[C]](id fsm.ID, store ports.FlagStore, machine *domain.Machine, next fsm.State[C], opts ...Option[C]) *DeleteFlagState[C] {
	return NewDeleteFlag(id, store, domain.CatchUpKey(machine), machine, next, opts...)
}

// Key returns the flag key the state deletes.
func (s *DeleteFlagState[C]) Key() string { return s.key }

func (s *DeleteFlagState[C]) Step(ctx context.Context, c C) error {
	var deleted bool
	err := s.store.Update(ctx, func(w ports.FlagWriter) error {
		_, err := w.Lookup(ctx, s.key)
		if errors.Is(err, domain.ErrFlagNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return w.Delete(ctx, s.key)
	})
	logger := scopedLogger(c.Logger(), s.Name(), s.key, s.machine)
	if err != nil {
		return escalate(ctx, logger, "Flag deletion failed", err)
	}
	if deleted {
		logger.Info("Flag deleted")
	}
	c.SwitchTo(s.next)
	return nil
}
