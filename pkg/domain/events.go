package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter EventType = "state_enter"
	EventStateLeave EventType = "state_leave"
	EventStateError EventType = "state_error"
	EventRunEnd     EventType = "run_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Scope     string    `json:"scope"`
}

// StateEvent represents entry into, exit from, or failure of a state.
type StateEvent struct {
	EventBase
	State    string        `json:"state"`
	PerfName string        `json:"perf_name,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RunEvent summarises a finished run of a state machine.
type RunEvent struct {
	EventBase
	Status      string        `json:"status"`
	Steps       int           `json:"steps"`
	Transitions int           `json:"transitions"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// LifecycleHooks defines callbacks for driver observability.
type LifecycleHooks struct {
	OnStateEnter func(context.Context, *StateEvent)
	OnStateLeave func(context.Context, *StateEvent)
	OnStateError func(context.Context, *StateEvent)
	OnRunEnd     func(context.Context, *RunEvent)
}

// Merge returns hooks that call h first and then other, for every callback set on either.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateEnter: chainState(h.OnStateEnter, other.OnStateEnter),
		OnStateLeave: chainState(h.OnStateLeave, other.OnStateLeave),
		OnStateError: chainState(h.OnStateError, other.OnStateError),
		OnRunEnd:     chainRun(h.OnRunEnd, other.OnRunEnd),
	}
}

func chainState(a, b func(context.Context, *StateEvent)) func(context.Context, *StateEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *StateEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainRun(a, b func(context.Context, *RunEvent)) func(context.Context, *RunEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *RunEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
