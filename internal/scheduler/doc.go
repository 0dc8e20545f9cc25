// Package scheduler runs the analysis contexts periodically, one goroutine per
// context, each run holding the lock of its context.
package scheduler
