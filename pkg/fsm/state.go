package fsm

import (
	"context"
	"log/slog"
	"time"
)

// State is a named unit of work over a context of type C.
//
// Step runs once per activation. It performs its side effects and then calls exactly
// one of SwitchTo or SwitchToEndState on the context, or returns an error.
type State[C any] interface {
	// Name is the diagnostic identity of the state.
	Name() string
	// PerfName is the metrics bucket of the state. Empty means not measured.
	PerfName() string
	// ExceptionState is the recovery target of an unexpected Step error, or nil.
	ExceptionState() State[C]
	Step(ctx context.Context, c C) error
}

// Context is implemented by the concrete analysis that a state graph runs against.
type Context[C any] interface {
	// SwitchTo makes next the active state. A nil or end state ends the run.
	SwitchTo(next State[C])
	// SwitchToEndState ends the run.
	SwitchToEndState()
	// Now returns the current UTC time of the run clock.
	Now() time.Time
	// Deadline returns the wall-clock ceiling of the current run.
	Deadline() time.Time
	// Logger returns the logger scoped to the context.
	Logger() *slog.Logger
}

// ID is the diagnostic identity of a state: its name and its metrics bucket.
type ID struct {
	Name     string
	PerfName string
}

// Named returns an ID whose metrics bucket equals its name.
func Named(name string) ID {
	return ID{Name: name, PerfName: name}
}

// Perf returns a copy of id with another metrics bucket.
func (id ID) Perf(perfName string) ID {
	id.PerfName = perfName
	return id
}

// Base carries the identity and the exception state shared by every state.
// Embed it to implement the non-Step part of State.
type Base[C any] struct {
	id        ID
	exception State[C]
}

// NewBase returns a Base with the given identity and optional exception state.
func NewBase[C any](id ID, exception State[C]) Base[C] {
	return Base[C]{id: id, exception: exception}
}

func (b Base[C]) Name() string { return b.id.Name }

func (b Base[C]) PerfName() string { return b.id.PerfName }

func (b Base[C]) ExceptionState() State[C] { return b.exception }

// Clock is the time source of a run.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
