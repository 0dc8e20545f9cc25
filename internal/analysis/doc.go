// Package analysis holds the analysis contexts the state graphs run against: one
// MachineAnalysis per monitored machine and a single GlobalAnalysis.
//
// A context is long-lived. It is bound once to the initial state of the resolved
// extension and then run at every scheduler tick, so that state caches survive
// between runs.
package analysis
