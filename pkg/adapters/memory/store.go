package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// Store implements ports.FlagStore and ports.WindowStore in memory.
// Safe for concurrent use. Update transactions are serialized.
type Store struct {
	mu      sync.RWMutex
	flags   map[string]domain.Flag
	windows map[int][]domain.ProductionWindow
}

var (
	_ ports.FlagStore   = (*Store)(nil)
	_ ports.WindowStore = (*Store)(nil)
)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		flags:   make(map[string]domain.Flag),
		windows: make(map[int][]domain.ProductionWindow),
	}
}

// View runs fn against a read-only view of the flags.
func (s *Store) View(ctx context.Context, fn func(ports.FlagReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(flagView{flags: s.flags})
}

// Update runs fn against a private copy of the flags and publishes the copy when
// fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(ports.FlagWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := make(map[string]domain.Flag, len(s.flags))
	for k, v := range s.flags {
		working[k] = v
	}
	tx := &flagTx{flagView: flagView{flags: working}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.flags = working
	return nil
}

type flagView struct {
	flags map[string]domain.Flag
}

func (v flagView) Lookup(ctx context.Context, key string) (*domain.Flag, error) {
	flag, ok := v.flags[key]
	if !ok {
		return nil, domain.ErrFlagNotFound
	}
	return &flag, nil
}

func (v flagView) List(ctx context.Context, prefix string) ([]domain.Flag, error) {
	out := make([]domain.Flag, 0)
	for k, f := range v.flags {
		if strings.HasPrefix(k, prefix) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type flagTx struct {
	flagView
}

func (tx *flagTx) Save(ctx context.Context, flag domain.Flag) error {
	tx.flags[flag.Key] = flag
	return nil
}

func (tx *flagTx) Delete(ctx context.Context, key string) error {
	delete(tx.flags, key)
	return nil
}

// FindCovering returns the window of machineID covering at.
func (s *Store) FindCovering(ctx context.Context, machineID int, at time.Time) (*domain.ProductionWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.windows[machineID] {
		if w.Covers(at) {
			ret := w
			if w.Production != nil {
				p := *w.Production
				ret.Production = &p
			}
			return &ret, nil
		}
	}
	return nil, domain.ErrWindowNotFound
}

// AddWindow records w and closes the open window of the same machine.
func (s *Store) AddWindow(ctx context.Context, w domain.ProductionWindow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.windows[w.MachineID]
	for i := range list {
		if list[i].End.IsZero() && list[i].Begin.Before(w.Begin) {
			list[i].End = w.Begin
		}
	}
	if w.Production != nil {
		p := *w.Production
		w.Production = &p
	}
	list = append(list, w)
	sort.Slice(list, func(i, j int) bool { return list[i].Begin.Before(list[j].Begin) })
	s.windows[w.MachineID] = list
	return nil
}
