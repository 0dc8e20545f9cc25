package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates analysis contexts across replicas.
type DistributedLocker interface {
	// Lock acquires the lock for key (e.g. "analysis:machine:3").
	// It blocks until the lock is acquired or ctx is done. The lock is kept alive until
	// released; ttl bounds how long it outlives a holder that died.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
