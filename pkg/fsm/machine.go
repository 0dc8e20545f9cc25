package fsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
)

var (
	// ErrAlreadyRunning is returned by Run when the machine is already running.
	ErrAlreadyRunning = errors.New("machine already running")
	// ErrNoInitialState is returned by Run when the machine has no initial state.
	ErrNoInitialState = errors.New("machine has no initial state")
	// ErrNoTransition is returned when a step returned without switching state.
	ErrNoTransition = errors.New("state returned without a transition")
	// ErrStepLimit is returned when the run exceeds its step limit.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrStateExceptions wraps the first recorded state exception when the run
	// fails on state exceptions.
	ErrStateExceptions = errors.New("run ended with state exceptions")
)

// Status is the final outcome of a run.
type Status string

const (
	StatusEnded       Status = "ended"
	StatusInterrupted Status = "interrupted"
	StatusCancelled   Status = "cancelled"
	StatusFaulted     Status = "faulted"
)

// Result summarises one run.
type Result struct {
	RunID       string        `json:"run_id"`
	Scope       string        `json:"scope"`
	Status      Status        `json:"status"`
	Steps       int           `json:"steps"`
	Transitions int           `json:"transitions"`
	LastState   string        `json:"last_state,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Exceptions  []error       `json:"-"`
}

// Machine drives a state graph over a context of type C.
//
// A Machine is reusable but not reentrant: Run returns ErrAlreadyRunning while
// another run is in progress. The transition methods are meant to be called from
// Step, on the goroutine executing Run.
type Machine[C any] struct {
	scope   string
	initial State[C]
	settings

	running atomic.Bool

	runID       string
	current     State[C]
	ended       bool
	startedAt   time.Time
	transitions int
	exceptions  []error
}

// NewMachine returns a driver that starts every run at initial.
// The scope names the context in logs and events, for example a machine id.
func NewMachine[C any](scope string, initial State[C], opts ...Option) *Machine[C] {
	m := &Machine[C]{
		scope:   scope,
		initial: initial,
		settings: settings{
			clock:   SystemClock,
			maxTime: DefaultMaxTime,
			logger:  logging.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&m.settings)
	}
	m.logger = m.logger.With("scope", scope)
	return m
}

// Scope returns the scope the machine was created with.
func (m *Machine[C]) Scope() string { return m.scope }

// SwitchTo makes next the active state. A nil or end state ends the run.
func (m *Machine[C]) SwitchTo(next State[C]) {
	if IsEnd(next) {
		m.SwitchToEndState()
		return
	}
	m.transitions++
	m.current = next
}

// SwitchToEndState ends the run after the current step.
func (m *Machine[C]) SwitchToEndState() {
	m.transitions++
	m.ended = true
	m.current = nil
}

// Now returns the run clock.
func (m *Machine[C]) Now() time.Time { return m.clock.Now() }

// StartedAt returns the start of the current or last run.
func (m *Machine[C]) StartedAt() time.Time { return m.startedAt }

// Deadline returns the wall-clock ceiling of the current run.
func (m *Machine[C]) Deadline() time.Time {
	if m.maxTime <= 0 {
		return domain.MaxTime
	}
	return m.startedAt.Add(m.maxTime)
}

// StepDeadline returns the ceiling of a step that may last between localMin and
// localMax, given the run deadline.
func (m *Machine[C]) StepDeadline(localMax, localMin time.Duration) time.Time {
	if m.maxTime <= 0 {
		return m.Now().Add(localMax)
	}
	return MaxAnalysisTime(m.startedAt, m.maxTime, m.Now(), localMax, localMin)
}

// Logger returns the machine logger.
func (m *Machine[C]) Logger() *slog.Logger { return m.logger }

// RunID returns the identifier of the current or last run.
func (m *Machine[C]) RunID() string { return m.runID }

// Run steps the state graph against c until it ends, is interrupted, or fails.
//
// Interruption is not an error: the result carries StatusInterrupted and err is nil.
// Cancellation and abort errors are returned unchanged.
func (m *Machine[C]) Run(ctx context.Context, c C) (Result, error) {
	if m.initial == nil {
		return Result{}, ErrNoInitialState
	}
	if !m.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRunning
	}
	defer m.running.Store(false)

	m.runID = uuid.NewString()
	m.current = m.initial
	m.ended = false
	m.transitions = 0
	m.exceptions = nil
	m.startedAt = m.clock.Now()

	logger := m.logger.With("run_id", m.runID)
	logger.Debug("Run started", "state", m.initial.Name(), "deadline", m.Deadline())

	res := Result{RunID: m.runID, Scope: m.scope, StartedAt: m.startedAt}
	for {
		if m.ended {
			return m.finish(ctx, &res, StatusEnded, nil)
		}
		if err := ctx.Err(); err != nil {
			logger.Error("Run cancelled", "state", m.current.Name(), "err", err)
			return m.finish(ctx, &res, StatusCancelled, err)
		}
		if reason, ok := m.interruptRequested(); ok {
			logger.Info("Run interrupted", "state", m.current.Name(), "reason", reason)
			return m.finish(ctx, &res, StatusInterrupted, nil)
		}
		if m.maxSteps > 0 && res.Steps >= m.maxSteps {
			err := fmt.Errorf("%w: %d steps", ErrStepLimit, res.Steps)
			logger.Error("Run faulted", "state", m.current.Name(), "err", err)
			return m.finish(ctx, &res, StatusFaulted, err)
		}

		state := m.current
		res.LastState = state.Name()
		before := m.transitions
		err := m.step(ctx, state, c)
		res.Steps++

		if err == nil {
			if m.transitions == before {
				err = fmt.Errorf("state %s: %w", state.Name(), ErrNoTransition)
				logging.Fatal(ctx, logger, "State made no transition", "state", state.Name())
				return m.finish(ctx, &res, StatusFaulted, err)
			}
			continue
		}

		switch Classify(err) {
		case FaultInterrupt:
			logger.Info("Run interrupted", "state", state.Name(), "reason", err.Error())
			return m.finish(ctx, &res, StatusInterrupted, nil)
		case FaultCancel, FaultAbort:
			logger.Error("Run stopped", "state", state.Name(), "err", err)
			return m.finish(ctx, &res, StatusCancelled, err)
		}

		if ex := state.ExceptionState(); ex != nil {
			logger.Error("State failed, switching to exception state",
				"state", state.Name(), "exception_state", ex.Name(), "err", err)
			m.exceptions = append(m.exceptions, fmt.Errorf("state %s: %w", state.Name(), err))
			m.SwitchTo(ex)
			continue
		}
		logging.Fatal(ctx, logger, "State failed", "state", state.Name(), "err", err)
		return m.finish(ctx, &res, StatusFaulted, err)
	}
}

func (m *Machine[C]) step(ctx context.Context, state State[C], c C) error {
	start := m.clock.Now()
	if m.hooks.OnStateEnter != nil {
		m.hooks.OnStateEnter(ctx, m.stateEvent(domain.EventStateEnter, state, start, 0, nil))
	}
	err := state.Step(ctx, c)
	end := m.clock.Now()
	if err != nil {
		if m.hooks.OnStateError != nil {
			m.hooks.OnStateError(ctx, m.stateEvent(domain.EventStateError, state, end, end.Sub(start), err))
		}
		return err
	}
	if m.hooks.OnStateLeave != nil {
		m.hooks.OnStateLeave(ctx, m.stateEvent(domain.EventStateLeave, state, end, end.Sub(start), nil))
	}
	return nil
}

func (m *Machine[C]) stateEvent(t domain.EventType, state State[C], at time.Time, d time.Duration, err error) *domain.StateEvent {
	return &domain.StateEvent{
		EventBase: domain.EventBase{Timestamp: at, Type: t, RunID: m.runID, Scope: m.scope},
		State:     state.Name(),
		PerfName:  state.PerfName(),
		Duration:  d,
		Err:       err,
	}
}

func (m *Machine[C]) interruptRequested() (string, bool) {
	if m.paused != nil && m.paused() {
		return "pause requested", true
	}
	if m.interrupt != nil {
		select {
		case <-m.interrupt:
			return "interrupt signal", true
		default:
		}
	}
	if m.maxTime > 0 && m.overrun > 0 && m.clock.Now().After(m.Deadline().Add(m.overrun)) {
		return "analysis time overrun", true
	}
	return "", false
}

func (m *Machine[C]) finish(ctx context.Context, res *Result, status Status, err error) (Result, error) {
	res.Status = status
	res.Transitions = m.transitions
	res.Exceptions = m.exceptions
	res.Duration = m.clock.Now().Sub(m.startedAt)
	m.current = nil

	if status == StatusEnded && m.failOnStateException && len(m.exceptions) > 0 {
		err = fmt.Errorf("%w: %d recorded, first: %w", ErrStateExceptions, len(m.exceptions), m.exceptions[0])
	}

	m.logger.Debug("Run finished",
		"run_id", res.RunID, "status", status, "steps", res.Steps,
		"transitions", res.Transitions, "duration", res.Duration)

	if m.hooks.OnRunEnd != nil {
		m.hooks.OnRunEnd(ctx, &domain.RunEvent{
			EventBase:   domain.EventBase{Timestamp: m.clock.Now(), Type: domain.EventRunEnd, RunID: res.RunID, Scope: m.scope},
			Status:      string(status),
			Steps:       res.Steps,
			Transitions: res.Transitions,
			Duration:    res.Duration,
			Err:         err,
		})
	}
	return *res, err
}
