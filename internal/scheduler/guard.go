package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica keeps a context locked.
const DefaultLockTTL = 2 * time.Minute

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Guard serializes the runs of an analysis context, in process and, with a
// distributed locker, across replicas.
// Entries are reference counted so unused keys are garbage collected.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker      ports.DistributedLocker
	ttl         time.Duration
	lockTimeout time.Duration
	logger      *slog.Logger
}

// GuardOption configures the Guard.
type GuardOption func(*Guard)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) GuardOption {
	return func(g *Guard) {
		g.locker = locker
	}
}

// WithLockTTL sets the expiry of the distributed lock.
func WithLockTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLockTimeout bounds the wait for a distributed lock. Zero waits as long as ctx.
func WithLockTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.lockTimeout = d
	}
}

// WithGuardLogger configures a logger for deferred unlock errors.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// NewGuard creates a Guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (g *Guard) acquire(key string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		entry = &lockEntry{}
		g.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, exists := g.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, key)
	}
}

// Active returns the number of keys currently locked or waited for.
func (g *Guard) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

// WithLock executes fn while holding the lock for key.
func (g *Guard) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := g.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		g.release(key)
	}()

	if g.locker != nil {
		lockCtx, cancel := ctx, context.CancelFunc(func() {})
		if g.lockTimeout > 0 {
			lockCtx, cancel = context.WithTimeout(ctx, g.lockTimeout)
		}
		unlock, err := g.locker.Lock(lockCtx, key, g.ttl)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLocked, err)
		}
		defer func() {
			// The run context may be cancelled already.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
