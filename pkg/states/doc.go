// Package states is the library of reusable states the analysis graphs are built from.
//
// Every state is immutable once built, apart from the decision caches of
// ProductionSwitchState and FrequencyState, which are guarded by a mutex.
// Constructors take the transitions as fsm.State values; pass fsm.End to end the run.
package states
