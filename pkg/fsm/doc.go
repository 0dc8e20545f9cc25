/*
Package fsm is the time-boxed state machine core of the analysis engine.

A State is an immutable, named unit of work over a context type C. A Context owns the
currently active state and exposes the transition operations SwitchTo and
SwitchToEndState. Machine is the driver: it steps the active state under a
cancellation signal until a state ends the run, an interruption is requested, or a
step fails.

# Failure kinds

Step errors are classified with Classify:

  - FaultInterrupt (domain.ErrInterrupted): cooperative pause or shutdown. The run stops
    cleanly with StatusInterrupted and a nil error.
  - FaultCancel (context.Canceled, context.DeadlineExceeded) and FaultAbort
    (domain.ErrAborted): returned unchanged with StatusCancelled.
  - FaultUnexpected: routed to the state's ExceptionState when it declares one,
    otherwise returned with StatusFaulted.

# Usage

	type run struct{ m *fsm.Machine[*run] }

	func (r *run) SwitchTo(s fsm.State[*run]) { r.m.SwitchTo(s) }
	func (r *run) SwitchToEndState()          { r.m.SwitchToEndState() }
	func (r *run) Now() time.Time             { return r.m.Now() }
	func (r *run) Deadline() time.Time        { return r.m.Deadline() }
	func (r *run) Logger() *slog.Logger       { return r.m.Logger() }

	r := &run{}
	r.m = fsm.NewMachine[*run]("demo", initial, fsm.WithMaxTime(40*time.Second))
	res, err := r.m.Run(ctx, r)
*/
package fsm
