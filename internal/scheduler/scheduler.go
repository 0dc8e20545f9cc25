package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/fsm"
)

var (
	// ErrLocked is returned when another owner holds the lock of a context.
	ErrLocked = errors.New("analysis context is locked")
	// ErrUnknownJob is returned by RunOnce for a key that was never added.
	ErrUnknownJob = errors.New("unknown analysis context")
	// ErrDuplicateJob is returned by Add for a key that is already scheduled.
	ErrDuplicateJob = errors.New("analysis context already scheduled")
)

// DefaultFrequency is the pause between two runs of the same context.
const DefaultFrequency = 2 * time.Second

// Runner is an analysis context bound to its state graph.
type Runner interface {
	Run(ctx context.Context) (fsm.Result, error)
}

// Status is the outcome of the last run of a context.
type Status struct {
	Key       string     `json:"key"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	Last      fsm.Result `json:"last"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type job struct {
	key    string
	runner Runner
}

// Scheduler runs every analysis context in its own goroutine, one run after the
// other, pausing between runs. Contexts only share the stores.
type Scheduler struct {
	every  time.Duration
	guard  *Guard
	logger *slog.Logger
	clock  fsm.Clock

	mu     sync.RWMutex
	jobs   []job
	status map[string]Status
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithFrequency sets the pause between two runs of a context.
func WithFrequency(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.every = d
		}
	}
}

// WithGuard sets the lock guard of the runs.
func WithGuard(g *Guard) Option {
	return func(s *Scheduler) {
		s.guard = g
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithClock sets the clock stamping statuses.
func WithClock(c fsm.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		every:  DefaultFrequency,
		logger: logging.NewNop(),
		clock:  fsm.SystemClock,
		status: make(map[string]Status),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = NewGuard(WithGuardLogger(s.logger))
	}
	return s
}

// Add schedules r under key, e.g. "analysis:machine:3".
func (s *Scheduler) Add(key string, r Runner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.key == key {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, key)
		}
	}
	s.jobs = append(s.jobs, job{key: key, runner: r})
	return nil
}

// Keys returns the scheduled keys in insertion order.
func (s *Scheduler) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		keys[i] = j.key
	}
	return keys
}

// Start runs every context until ctx is done, then waits for the runs in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.RUnlock()

	s.logger.Info("Scheduler started", "contexts", len(jobs), "frequency", s.every)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, j)
		}()
	}
	wg.Wait()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if _, err := s.run(ctx, j); err != nil && ctx.Err() == nil {
			s.logger.Error("Analysis run failed", "key", j.key, "err", err)
		}
		timer.Reset(s.every)
	}
}

// RunOnce runs the context scheduled under key once, under its lock.
func (s *Scheduler) RunOnce(ctx context.Context, key string) (fsm.Result, error) {
	s.mu.RLock()
	var found *job
	for i := range s.jobs {
		if s.jobs[i].key == key {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.RUnlock()
	if found == nil {
		return fsm.Result{}, fmt.Errorf("%w: %s", ErrUnknownJob, key)
	}
	return s.run(ctx, *found)
}

func (s *Scheduler) run(ctx context.Context, j job) (fsm.Result, error) {
	var res fsm.Result
	err := s.guard.WithLock(ctx, j.key, func(ctx context.Context) error {
		var err error
		res, err = j.runner.Run(ctx)
		return err
	})
	if errors.Is(err, ErrLocked) {
		s.logger.Debug("Analysis context locked elsewhere, skip", "key", j.key)
		return res, err
	}
	s.record(j.key, res, err)
	return res, err
}

func (s *Scheduler) record(key string, res fsm.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[key]
	st.Key = key
	st.Runs++
	st.Last = res
	st.Error = ""
	if err != nil {
		st.Failures++
		st.Error = err.Error()
	}
	st.UpdatedAt = s.clock.Now()
	s.status[key] = st
}

// Statuses returns the status of every context that ran at least once, sorted by key.
func (s *Scheduler) Statuses() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Status returns the status of key.
func (s *Scheduler) Status(key string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.status[key]
	return st, ok
}

// GlobalKey is the key of the global analysis context.
const GlobalKey = "analysis:global"

// MachineKey returns the key of the analysis context of a machine.
func MachineKey(id int) string {
	return "analysis:machine:" + strconv.Itoa(id)
}
