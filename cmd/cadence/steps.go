package main

import (
	"context"
	"log/slog"

	"github.com/aretw0/cadence/internal/extensions"
	"github.com/aretw0/cadence/pkg/registry"
)

// loggingSteps registers every step of the built-in graphs as a step that only
// logs its invocation, so a bare service runs end to end.
func loggingSteps(logger *slog.Logger) *registry.Steps {
	steps := registry.NewSteps()
	for _, name := range extensions.Steps() {
		steps.Register(name, func(_ context.Context, req registry.StepRequest) (bool, error) {
			logger.Debug("Analysis step", "step", name, "machine", req.Machine.Label(),
				"deadline", req.Deadline, "args", req.Args)
			return true, nil
		})
	}
	return steps
}
