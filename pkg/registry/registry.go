package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
)

// StepRequest describes one invocation of an analysis step.
type StepRequest struct {
	// Machine is the analyzed machine. The zero Machine is the global scope.
	Machine domain.Machine
	// Deadline is the instant the step should return by.
	Deadline time.Time
	// Args are step specific parameters, e.g. modification priorities.
	Args map[string]any
}

// StepFunc defines the signature of an analysis step implementation.
// Returning false ends the current run.
type StepFunc func(ctx context.Context, req StepRequest) (bool, error)

// Steps manages the available analysis steps.
type Steps struct {
	mu    sync.RWMutex
	steps map[string]StepFunc
}

// NewSteps creates a new empty registry.
func NewSteps() *Steps {
	return &Steps{
		steps: make(map[string]StepFunc),
	}
}

// Register adds a step to the registry.
// If a step with the same name exists, it is overwritten.
func (r *Steps) Register(name string, fn StepFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = fn
}

// Has reports whether a step is registered under name.
func (r *Steps) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[name]
	return ok
}

// Names returns the registered step names, sorted.
func (r *Steps) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run looks up a step by name and executes it.
// Returns domain.ErrUnknownStep if the step is not found.
func (r *Steps) Run(ctx context.Context, name string, req StepRequest) (bool, error) {
	r.mu.RLock()
	fn, ok := r.steps[name]
	r.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrUnknownStep, name)
	}

	return fn(ctx, req)
}
