/*
Package cadence is a time-boxed analysis engine: it runs, for every monitored
machine and for the global scope, a state graph of analysis steps against a wall
clock budget, over and over.

# Concept

Each analysis context owns a state machine (see package fsm). A state runs one
unit of work and switches to its successor; once the budget of a run is spent, a
state may switch to a shorter path instead. Errors of a step are routed to the
exception state of the failing state, cancellation and aborts stop the run, and a
cooperative interrupt (a pause request, a signal, a budget overrun) ends it cleanly
between two steps.

The graph of a context is contributed by an extension. Several extensions may
apply to the same context: the one with the highest priority among those that
initialize wins.

# Usage

	cfg, err := config.Load("cadence.yaml")
	if err != nil {
		log.Fatal(err)
	}
	steps := registry.NewSteps()
	steps.Register("Activity", func(ctx context.Context, req registry.StepRequest) (bool, error) {
		// ... analyze req.Machine until req.Deadline
		return true, nil
	})

	svc, err := cadence.New(cfg, cadence.WithSteps(steps))
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := svc.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package cadence
