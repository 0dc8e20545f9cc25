// Package extensions builds the state graphs of the analysis contexts.
//
// Three extensions are built in:
//
//   - liveops: monitored machines. Catch-up switch, then production switch, then the
//     production or not-production pipeline. Default priority 20.
//   - global: the global context. Catch-up switch, then the template and pending
//     modification pipeline. Default priority 20.
//   - minimal: any context. Pending modifications only. Default priority 0.
//
// The business logic of every step is looked up by name in the registry.Steps of the
// context, see Steps for the names.
package extensions
