package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/adapters/memory"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

func TestMemoryStore_FlagContract(t *testing.T) {
	ports.RunFlagStoreContract(t, memory.NewStore())
}

func TestMemoryStore_WindowContract(t *testing.T) {
	ports.RunWindowStoreContract(t, memory.NewStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.View(ctx, func(ports.FlagReader) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	_, err = store.FindCovering(ctx, 1, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.FindCovering(context.Background(), 1, time.Now())
	assert.ErrorIs(t, err, domain.ErrWindowNotFound)
}

func TestMemoryStore_LookupReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Update(ctx, func(w ports.FlagWriter) error {
		return w.Save(ctx, domain.Flag{Key: "k", Value: "v"})
	}))

	require.NoError(t, store.View(ctx, func(r ports.FlagReader) error {
		f, err := r.Lookup(ctx, "k")
		require.NoError(t, err)
		f.Value = "mutated"
		return nil
	}))

	require.NoError(t, store.View(ctx, func(r ports.FlagReader) error {
		f, err := r.Lookup(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", f.Value)
		return nil
	}))
}
