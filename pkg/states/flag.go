package states

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
)

// FlagSwitchState branches on the presence of a persisted flag.
//
// It declares no exception state: a failed lookup is logged and returned for the
// driver to handle.
type FlagSwitchState[C fsm.Context[C]] struct {
	fsm.Base[C]
	store    ports.FlagStore
	key      string
	machine  *domain.Machine
	onState  fsm.State[C]
	fallback fsm.State[C]
}

// NewFlagSwitch returns a state switching to onState when key is stored and to
// fallback otherwise. machine is optional and only scopes the logs.
func NewFlagSwitch[C fsm.Context[C]](id fsm.ID, store ports.FlagStore, key string, machine *domain.Machine, onState, fallback fsm.State[C]) *FlagSwitchState[C] {
	return &FlagSwitchState[C]{
		Base:     fsm.NewBase[C](id, nil),
		store:    store,
		key:      key,
		machine:  machine,
		onState:  onState,
		fallback: fallback,
	}
}

// NewCatchUpSwitch returns a FlagSwitchState on the catch-up flag of machine, or on
// the global catch-up flag when machine is nil.
func NewCatchUpSwitch[C fsm.Context[C]](id fsm.ID, store ports.FlagStore, machine *domain.Machine, catchUp, live fsm.State[C]) *FlagSwitchState[C] {
	return NewFlagSwitch(id, store, domain.CatchUpKey(machine), machine, catchUp, live)
}

// Key returns the flag key the state branches on.
func (s *FlagSwitchState[C]) Key() string { return s.key }

func (s *FlagSwitchState[C]) Step(ctx context.Context, c C) error {
	found, err := lookupFlag(ctx, s.store, s.key)
	if err != nil {
		return escalate(ctx, scopedLogger(c.Logger(), s.Name(), s.key, s.machine), "Flag lookup failed", err)
	}
	if found {
		c.SwitchTo(s.onState)
	} else {
		c.SwitchTo(s.fallback)
	}
	return nil
}

func lookupFlag(ctx context.Context, store ports.FlagStore, key string) (bool, error) {
	var found bool
	err := store.View(ctx, func(r ports.FlagReader) error {
		_, err := r.Lookup(ctx, key)
		switch {
		case err == nil:
			found = true
		case errors.Is(err, domain.ErrFlagNotFound):
		default:
			return err
		}
		return nil
	})
	return found, err
}

func scopedLogger(logger *slog.Logger, state, key string, machine *domain.Machine) *slog.Logger {
	logger = logger.With("state", state, "key", key)
	if machine != nil {
		logger = logger.With("machine", machine.Label())
	}
	return logger
}
