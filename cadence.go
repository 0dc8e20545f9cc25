package cadence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/aretw0/cadence/internal/adapters/http"
	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/internal/config"
	"github.com/aretw0/cadence/internal/extensions"
	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/internal/metrics"
	"github.com/aretw0/cadence/internal/scheduler"
	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/adapters/redis"
	"github.com/aretw0/cadence/pkg/adapters/sqlite"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
	"github.com/aretw0/cadence/pkg/ports"
	"github.com/aretw0/cadence/pkg/registry"
)

// Version is the service version, overridden at build time.
var Version = "0.1.0-dev"

// Service is the high-level entry point: it owns the stores, resolves the state
// graph of every configured context and schedules their runs.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	clock   fsm.Clock
	flags   ports.FlagStore
	windows ports.WindowStore
	steps   *registry.Steps
	pause   *analysis.Pause
	hooks   domain.LifecycleHooks

	catalog   *extensions.Catalog
	scheduler *scheduler.Scheduler
	registry  *prometheus.Registry
	closers   []io.Closer
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSteps sets the analysis step implementations.
func WithSteps(steps *registry.Steps) Option {
	return func(s *Service) {
		s.steps = steps
	}
}

// WithFlagStore injects a flag store, bypassing the configured driver.
func WithFlagStore(store ports.FlagStore) Option {
	return func(s *Service) {
		s.flags = store
	}
}

// WithWindowStore injects a production window store, bypassing the configured driver.
func WithWindowStore(store ports.WindowStore) Option {
	return func(s *Service) {
		s.windows = store
	}
}

// WithClock sets the clock of every run.
func WithClock(c fsm.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLifecycleHooks registers observability hooks, run after the metrics hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// New builds the service described by cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		clock:    fsm.SystemClock,
		pause:    &analysis.Pause{},
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		s.logger = logging.New(level)
	}
	if s.steps == nil {
		s.steps = registry.NewSteps()
	}

	locker, err := s.openStores()
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.catalog, err = extensions.New(cfg.Extensions)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(s.registry)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	guardOpts := []scheduler.GuardOption{
		scheduler.WithGuardLogger(s.logger),
		scheduler.WithLockTTL(cfg.Analysis.LockTTL),
		scheduler.WithLockTimeout(cfg.Analysis.Frequency),
	}
	if locker != nil {
		guardOpts = append(guardOpts, scheduler.WithLocker(locker))
	}
	s.scheduler = scheduler.New(
		scheduler.WithFrequency(cfg.Analysis.Frequency),
		scheduler.WithLogger(s.logger),
		scheduler.WithClock(s.clock),
		scheduler.WithGuard(scheduler.NewGuard(guardOpts...)),
	)

	deps := analysis.Deps{
		Flags:   s.flags,
		Windows: s.windows,
		Steps:   s.steps,
		Pause:   s.pause,
		Logger:  s.logger,
		Clock:   s.clock,
		Options: []fsm.Option{
			fsm.WithMaxTime(cfg.Analysis.MaxTime),
			fsm.WithOverrun(cfg.Analysis.Overrun),
			fsm.WithStepLimit(cfg.Analysis.StepLimit),
			fsm.WithFailOnStateException(cfg.Analysis.FailOnStateException),
			fsm.WithHooks(m.Hooks().Merge(s.hooks)),
		},
	}
	if err := s.bind(deps); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// openStores opens the configured stores, unless they were injected, and returns
// the distributed locker when Redis is configured.
func (s *Service) openStores() (ports.DistributedLocker, error) {
	injectedFlags := s.flags != nil
	if s.flags == nil || s.windows == nil {
		switch s.cfg.Store.Driver {
		case config.DriverMemory:
			store := memory.NewStore()
			s.setStores(store, store)
		case config.DriverSQLite:
			store, err := sqlite.NewStore(s.cfg.Store.DSN)
			if err != nil {
				return nil, err
			}
			s.closers = append(s.closers, store)
			s.setStores(store, store)
		}
	}

	if !s.cfg.Redis.Enabled() {
		return nil, nil
	}
	client := backend.NewClient(&backend.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	s.closers = append(s.closers, client)
	if s.cfg.Redis.FlagStore && !injectedFlags {
		s.flags = redis.NewFromClient(client, redis.WithPrefix(s.cfg.Redis.Prefix))
	}
	return redis.NewLocker(client, s.cfg.Redis.Prefix), nil
}

func (s *Service) setStores(flags ports.FlagStore, windows ports.WindowStore) {
	if s.flags == nil {
		s.flags = flags
	}
	if s.windows == nil {
		s.windows = windows
	}
}

// bind resolves the extension of every context and schedules it. A machine no
// extension applies to is skipped.
func (s *Service) bind(deps analysis.Deps) error {
	for _, m := range s.cfg.Machines {
		a := analysis.NewMachineAnalysis(m, deps)
		res, err := s.catalog.Machine.Resolve(a)
		if errors.Is(err, domain.ErrNoExtension) {
			s.logger.Warn("No extension applies to the machine, skip it", "machine", m.Label())
			continue
		}
		if err != nil {
			return err
		}
		s.logger.Debug("Extension resolved", "machine", m.Label(), "extension", res.Name, "candidates", res.Candidates)
		a.Bind(res.Extension.InitialState())
		if err := s.scheduler.Add(scheduler.MachineKey(m.ID), a); err != nil {
			return err
		}
	}

	g := analysis.NewGlobalAnalysis(deps)
	res, err := s.catalog.Global.Resolve(g)
	if errors.Is(err, domain.ErrNoExtension) {
		s.logger.Warn("No extension applies to the global analysis, skip it")
		return nil
	}
	if err != nil {
		return err
	}
	g.Bind(res.Extension.InitialState())
	return s.scheduler.Add(scheduler.GlobalKey, g)
}

// Run schedules every context, and serves the status API when configured, until
// ctx is done.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.scheduler.Start(ctx)
	})
	if addr := s.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error {
			return httpAdapter.ListenAndServe(ctx, addr, s.Handler(), s.logger)
		})
	}
	return g.Wait()
}

// RunOnce runs the context of machineID once. domain.GlobalMachineID selects the
// global context.
func (s *Service) RunOnce(ctx context.Context, machineID int) (fsm.Result, error) {
	key := scheduler.GlobalKey
	if machineID != domain.GlobalMachineID {
		key = scheduler.MachineKey(machineID)
	}
	return s.scheduler.RunOnce(ctx, key)
}

// Handler returns the status and operator HTTP API.
func (s *Service) Handler() http.Handler {
	return httpAdapter.NewHandler(&httpAdapter.Server{
		Runs:     s.scheduler,
		Flags:    s.flags,
		Gatherer: s.registry,
		Version:  Version,
		Logger:   s.logger,
		Clock:    s.clock.Now,
	})
}

// Scheduled returns the keys of the scheduled contexts.
func (s *Service) Scheduled() []string { return s.scheduler.Keys() }

// Flags returns the flag store.
func (s *Service) Flags() ports.FlagStore { return s.flags }

// Windows returns the production window store.
func (s *Service) Windows() ports.WindowStore { return s.windows }

// Pause returns the pause shared by every context.
func (s *Service) Pause() *analysis.Pause { return s.pause }

// Close releases the stores opened by New.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
