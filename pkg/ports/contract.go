package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/domain"
)

// RunFlagStoreContract runs a suite of tests to verify that a FlagStore implementation
// adheres to the defined interface contract.
func RunFlagStoreContract(t *testing.T, store FlagStore) {
	ctx := context.Background()
	prefix := "Contract." + time.Now().UTC().Format("20060102150405.000000") + "."

	lookup := func(t *testing.T, key string) (*domain.Flag, error) {
		var flag *domain.Flag
		err := store.View(ctx, func(r FlagReader) error {
			var err error
			flag, err = r.Lookup(ctx, key)
			return err
		})
		return flag, err
	}

	t.Run("Lookup Non-Existent", func(t *testing.T) {
		_, err := lookup(t, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrFlagNotFound)
	})

	t.Run("Save and Lookup", func(t *testing.T) {
		key := prefix + "saved"
		err := store.Update(ctx, func(w FlagWriter) error {
			return w.Save(ctx, domain.Flag{Key: key, Value: "1", UpdatedAt: time.Now().UTC()})
		})
		require.NoError(t, err, "Update should commit")

		flag, err := lookup(t, key)
		require.NoError(t, err)
		assert.Equal(t, key, flag.Key)
		assert.Equal(t, "1", flag.Value)
	})

	t.Run("Update Rolls Back On Error", func(t *testing.T) {
		key := prefix + "rolled-back"
		boom := errors.New("boom")
		err := store.Update(ctx, func(w FlagWriter) error {
			if err := w.Save(ctx, domain.Flag{Key: key, UpdatedAt: time.Now().UTC()}); err != nil {
				return err
			}
			return boom
		})
		assert.Same(t, boom, err, "Update should return the callback error unchanged")

		_, err = lookup(t, key)
		assert.ErrorIs(t, err, domain.ErrFlagNotFound, "rolled back flag should not be visible")
	})

	t.Run("View Returns Callback Error", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.View(ctx, func(FlagReader) error { return boom })
		assert.Same(t, boom, err)
	})

	t.Run("Delete", func(t *testing.T) {
		key := prefix + "deleted"
		require.NoError(t, store.Update(ctx, func(w FlagWriter) error {
			return w.Save(ctx, domain.Flag{Key: key, UpdatedAt: time.Now().UTC()})
		}))

		require.NoError(t, store.Update(ctx, func(w FlagWriter) error {
			return w.Delete(ctx, key)
		}))
		_, err := lookup(t, key)
		assert.ErrorIs(t, err, domain.ErrFlagNotFound, "Lookup after Delete should return ErrFlagNotFound")

		err = store.Update(ctx, func(w FlagWriter) error {
			return w.Delete(ctx, key)
		})
		assert.NoError(t, err, "deleting a missing flag should not fail")
	})

	t.Run("List", func(t *testing.T) {
		listPrefix := prefix + "list."
		require.NoError(t, store.Update(ctx, func(w FlagWriter) error {
			for _, k := range []string{"b", "a", "c"} {
				if err := w.Save(ctx, domain.Flag{Key: listPrefix + k, UpdatedAt: time.Now().UTC()}); err != nil {
					return err
				}
			}
			return nil
		}))

		var keys []string
		err := store.View(ctx, func(r FlagReader) error {
			flags, err := r.List(ctx, listPrefix)
			for _, f := range flags {
				keys = append(keys, f.Key)
			}
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{listPrefix + "a", listPrefix + "b", listPrefix + "c"}, keys)
	})
}

// RunWindowStoreContract runs a suite of tests to verify that a WindowStore implementation
// adheres to the defined interface contract.
func RunWindowStoreContract(t *testing.T, store WindowStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	production := true

	t.Run("Find Non-Existent", func(t *testing.T) {
		_, err := store.FindCovering(ctx, 9001, base)
		assert.ErrorIs(t, err, domain.ErrWindowNotFound)
	})

	t.Run("Half-Open Interval", func(t *testing.T) {
		err := store.AddWindow(ctx, domain.ProductionWindow{
			MachineID:  9002,
			Begin:      base,
			End:        base.Add(time.Hour),
			Production: &production,
		})
		require.NoError(t, err)

		w, err := store.FindCovering(ctx, 9002, base.Add(30*time.Minute))
		require.NoError(t, err)
		require.NotNil(t, w.Production)
		assert.True(t, *w.Production)
		assert.True(t, w.End.Equal(base.Add(time.Hour)))

		_, err = store.FindCovering(ctx, 9002, base.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrWindowNotFound, "End is exclusive")

		_, err = store.FindCovering(ctx, 9003, base.Add(30*time.Minute))
		assert.ErrorIs(t, err, domain.ErrWindowNotFound, "windows are per machine")
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		require.NoError(t, store.AddWindow(ctx, domain.ProductionWindow{MachineID: 9005, Begin: base}))

		_, err := store.FindCovering(cancelled, 9005, base)
		assert.ErrorIs(t, err, context.Canceled, "FindCovering must report the cancellation")
		err = store.AddWindow(cancelled, domain.ProductionWindow{MachineID: 9005, Begin: base.Add(time.Hour)})
		assert.ErrorIs(t, err, context.Canceled, "AddWindow must report the cancellation")
	})

	t.Run("Open Window Closed By Next", func(t *testing.T) {
		require.NoError(t, store.AddWindow(ctx, domain.ProductionWindow{MachineID: 9004, Begin: base}))

		w, err := store.FindCovering(ctx, 9004, base.Add(24*time.Hour))
		require.NoError(t, err)
		assert.True(t, w.End.IsZero(), "open window covers the future")
		assert.False(t, w.Classified())

		require.NoError(t, store.AddWindow(ctx, domain.ProductionWindow{
			MachineID:  9004,
			Begin:      base.Add(2 * time.Hour),
			Production: &production,
		}))

		w, err = store.FindCovering(ctx, 9004, base.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, w.End.Equal(base.Add(2*time.Hour)), "previous open window closed at the next begin")

		w, err = store.FindCovering(ctx, 9004, base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.True(t, w.Classified())
	})
}
