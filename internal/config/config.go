package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/cadence/pkg/domain"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config represents the structure of cadence.yaml.
type Config struct {
	LogLevel   string           `yaml:"log_level" json:"log_level"`
	Analysis   Analysis         `yaml:"analysis" json:"analysis"`
	Store      Store            `yaml:"store" json:"store"`
	Redis      Redis            `yaml:"redis" json:"redis"`
	Metrics    Metrics          `yaml:"metrics" json:"metrics"`
	Machines   []domain.Machine `yaml:"machines" json:"machines"`
	Extensions []Extension      `yaml:"extensions" json:"extensions"`
}

// Analysis configures the driver of every analysis context.
type Analysis struct {
	// MaxTime is the wall-clock budget of one run.
	MaxTime time.Duration `yaml:"max_time" json:"max_time"`
	// Frequency is the pause between two runs of the same context.
	Frequency time.Duration `yaml:"frequency" json:"frequency"`
	// Overrun stops a run between steps once it passes MaxTime by this much. Zero disables it.
	Overrun              time.Duration `yaml:"overrun" json:"overrun"`
	FailOnStateException bool          `yaml:"fail_on_state_exception" json:"fail_on_state_exception"`
	// StepLimit faults a run after that many steps. Zero disables it.
	StepLimit int `yaml:"step_limit" json:"step_limit"`
	// LockTTL is the expiry of the distributed lock of a context. Holders extend it
	// while they run, so it only bounds how long a crashed replica blocks others.
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

type Store struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Redis is optional. When Addr is set, contexts are guarded by a distributed lock
// and, with FlagStore, flags are kept in Redis instead of the relational store.
type Redis struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	FlagStore bool   `yaml:"flag_store" json:"flag_store"`
}

// Enabled reports whether a Redis server is configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

type Metrics struct {
	// Addr is the listen address of the status and metrics server. Empty disables it.
	Addr string `yaml:"addr" json:"addr"`
}

// Extension enables and configures one state machine extension.
type Extension struct {
	Name string `yaml:"name" json:"name"`
	// Priority overrides the default priority of the extension.
	Priority *float64 `yaml:"priority" json:"priority,omitempty"`
	// Machines restricts the extension to these machine ids. Empty means all.
	Machines []int          `yaml:"machines" json:"machines,omitempty"`
	Settings map[string]any `yaml:"settings" json:"settings,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Analysis: Analysis{
			MaxTime:   40 * time.Second,
			Frequency: 2 * time.Second,
			LockTTL:   2 * time.Minute,
		},
		Store: Store{
			Driver: DriverSQLite,
			DSN:    "cadence.db",
		},
		Redis: Redis{
			Prefix: "cadence:",
		},
		Extensions: []Extension{
			{Name: "liveops"},
			{Name: "global"},
			{Name: "minimal"},
		},
	}
}

// Load reads a YAML (or JSON) configuration file over the defaults and validates it.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if c.Analysis.MaxTime <= 0 {
		errs = append(errs, errors.New("analysis.max_time must be positive"))
	}
	if c.Analysis.Frequency <= 0 {
		errs = append(errs, errors.New("analysis.frequency must be positive"))
	}
	if c.Analysis.Overrun < 0 || c.Analysis.StepLimit < 0 || c.Analysis.LockTTL < 0 {
		errs = append(errs, errors.New("analysis.overrun, step_limit and lock_ttl must not be negative"))
	}
	if c.Redis.FlagStore && !c.Redis.Enabled() {
		errs = append(errs, errors.New("redis.flag_store requires redis.addr"))
	}

	seen := make(map[int]bool, len(c.Machines))
	for _, m := range c.Machines {
		switch {
		case m.IsGlobal():
			errs = append(errs, fmt.Errorf("machine id %d is reserved for the global analysis", domain.GlobalMachineID))
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("duplicate machine id %d", m.ID))
		}
		seen[m.ID] = true
	}

	for i, e := range c.Extensions {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("extensions[%d]: name is required", i))
		}
	}

	return errors.Join(errs...)
}

// Machine returns the configured machine with id.
func (c *Config) Machine(id int) (domain.Machine, bool) {
	for _, m := range c.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Machine{}, false
}
