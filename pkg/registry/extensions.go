package registry

import (
	"fmt"
	"sync"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
)

// Extension contributes the state graph of an analysis context.
type Extension[C any] interface {
	// Priority orders competing extensions. The highest wins.
	Priority() float64
	// Initialize prepares the extension for c. It returns false when the
	// extension does not apply to c.
	Initialize(c C) bool
	// InitialState is the root of the graph, valid after a successful Initialize.
	InitialState() fsm.State[C]
}

// Factory creates a fresh extension instance for one context.
type Factory[C any] func() Extension[C]

type entry[C any] struct {
	name    string
	factory Factory[C]
}

// Resolution is the outcome of Resolve.
type Resolution[C any] struct {
	Name      string
	Extension Extension[C]
	// Candidates lists, in registration order, the extensions that initialized.
	Candidates []string
}

// Extensions holds the extension factories of one context type.
type Extensions[C any] struct {
	mu      sync.RWMutex
	entries []entry[C]
}

// NewExtensions creates a new empty extension registry.
func NewExtensions[C any]() *Extensions[C] {
	return &Extensions[C]{}
}

// Register adds a factory. A factory with the same name is replaced in place, so
// it keeps its registration rank.
func (r *Extensions[C]) Register(name string, f Factory[C]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries[i].factory = f
			return
		}
	}
	r.entries = append(r.entries, entry[C]{name: name, factory: f})
}

// Names returns the registered extension names in registration order.
func (r *Extensions[C]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Resolve initializes every registered extension against c and returns the one
// with the highest priority among those that initialized. On equal priorities
// the first registered wins.
// Returns domain.ErrNoExtension if none initialized.
func (r *Extensions[C]) Resolve(c C) (Resolution[C], error) {
	r.mu.RLock()
	entries := append([]entry[C](nil), r.entries...)
	r.mu.RUnlock()

	var res Resolution[C]
	for _, e := range entries {
		ext := e.factory()
		if ext == nil || !ext.Initialize(c) || ext.InitialState() == nil {
			continue
		}
		res.Candidates = append(res.Candidates, e.name)
		if res.Extension == nil || ext.Priority() > res.Extension.Priority() {
			res.Name = e.name
			res.Extension = ext
		}
	}
	if res.Extension == nil {
		return res, fmt.Errorf("%w (%d registered)", domain.ErrNoExtension, len(entries))
	}
	return res, nil
}
