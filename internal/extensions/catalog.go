package extensions

import (
	"errors"
	"fmt"

	"github.com/aretw0/cadence/internal/analysis"
	"github.com/aretw0/cadence/internal/config"
	"github.com/aretw0/cadence/pkg/registry"
)

// ErrUnknownExtension is returned for an extension name with no built-in implementation.
var ErrUnknownExtension = errors.New("unknown extension")

// Catalog holds the configured extensions of both context types.
type Catalog struct {
	Machine *registry.Extensions[*analysis.MachineAnalysis]
	Global  *registry.Extensions[*analysis.GlobalAnalysis]
}

// New registers the configured extensions in order. An extension configured more
// than once is registered once per entry.
func New(cfgs []config.Extension) (*Catalog, error) {
	c := &Catalog{
		Machine: registry.NewExtensions[*analysis.MachineAnalysis](),
		Global:  registry.NewExtensions[*analysis.GlobalAnalysis](),
	}
	seen := make(map[string]int)
	for i, cfg := range cfgs {
		name := cfg.Name
		if n := seen[cfg.Name]; n > 0 {
			name = fmt.Sprintf("%s#%d", cfg.Name, i)
		}
		seen[cfg.Name]++
		if err := c.register(name, cfg); err != nil {
			return nil, fmt.Errorf("extension %q: %w", cfg.Name, err)
		}
	}
	return c, nil
}

func (c *Catalog) register(name string, cfg config.Extension) error {
	priority := func(def float64) float64 {
		if cfg.Priority != nil {
			return *cfg.Priority
		}
		return def
	}

	switch cfg.Name {
	case LiveOpsName:
		settings := defaultLiveOpsSettings()
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return err
		}
		c.Machine.Register(name, NewLiveOps(priority(LiveOpsPriority), settings, cfg.Machines))
	case GlobalName:
		settings := defaultGlobalSettings()
		if err := decodeSettings(cfg.Settings, &settings); err != nil {
			return err
		}
		c.Global.Register(name, NewGlobal(priority(GlobalPriority), settings, cfg.Machines))
	case MinimalName:
		if len(cfg.Settings) > 0 {
			return errors.New("minimal takes no settings")
		}
		c.Machine.Register(name, NewMinimal[*analysis.MachineAnalysis](priority(0), cfg.Machines))
		c.Global.Register(name, NewMinimal[*analysis.GlobalAnalysis](priority(0), cfg.Machines))
	default:
		return ErrUnknownExtension
	}
	return nil
}
