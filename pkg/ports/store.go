package ports

import (
	"context"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
)

// FlagReader reads flags inside a transaction.
type FlagReader interface {
	// Lookup returns the flag stored under key.
	// Returns domain.ErrFlagNotFound if no flag is stored under key.
	Lookup(ctx context.Context, key string) (*domain.Flag, error)

	// List returns the flags whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]domain.Flag, error)
}

// FlagWriter reads and writes flags inside a read-write transaction.
type FlagWriter interface {
	FlagReader

	// Save creates or replaces a flag.
	Save(ctx context.Context, flag domain.Flag) error

	// Delete removes the flag stored under key. Deleting a missing flag is not an error.
	Delete(ctx context.Context, key string) error
}

// FlagStore gives scoped transactional access to flags.
//
// The transaction lives exactly as long as fn. View always rolls back. Update commits
// when fn returns nil and rolls back otherwise; the error returned by fn is returned
// unchanged.
type FlagStore interface {
	View(ctx context.Context, fn func(FlagReader) error) error
	Update(ctx context.Context, fn func(FlagWriter) error) error
}

// WindowStore gives access to the production windows of the machines.
type WindowStore interface {
	// FindCovering returns the window of machineID that covers at.
	// Returns domain.ErrWindowNotFound if no window covers at.
	FindCovering(ctx context.Context, machineID int, at time.Time) (*domain.ProductionWindow, error)

	// AddWindow records a window. An open window (zero End) of the same machine is
	// closed at the Begin of the new one.
	AddWindow(ctx context.Context, w domain.ProductionWindow) error
}
