package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

func seedParentWithInstances(t *testing.T, store *Store, n int) (*storage.Occurrence, []*storage.Occurrence) {
	t.Helper()
	ctx := context.Background()

	rule := recurrence.Rule{Freq: recurrence.FreqWeekly, Interval: 1, Never: true}
	parent := storage.NewTestParent("parent-1", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour, rule)

	instances := make([]*storage.Occurrence, 0, n)
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateOccurrence(ctx, parent); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			anchor := parent.Start.AddDate(0, 0, 7*(i+1))
			inst := storage.NewTestInstance(string(rune('a'+i))+"-inst", parent, anchor)
			instances = append(instances, inst)
			if err := tx.CreateOccurrence(ctx, inst); err != nil {
				return err
			}
		}
		return nil
	}))
	return parent, instances
}

func TestStore_GetOccurrence(t *testing.T) {
	store := New()
	parent, _ := seedParentWithInstances(t, store, 1)
	ctx := context.Background()

	got, err := store.GetOccurrence(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ID)
	require.NotNil(t, got.Rule)

	// Returned rows are copies; mutating them must not leak into the store.
	got.Status = storage.StatusCanceled
	again, err := store.GetOccurrence(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusUncompleted, again.Status)

	_, err = store.GetOccurrence(ctx, "missing")
	assert.True(t, storage.IsNotFound(err))
}

func TestStore_UniqueAnchorConflict(t *testing.T) {
	store := New()
	parent, instances := seedParentWithInstances(t, store, 1)
	ctx := context.Background()

	dup := storage.NewTestInstance("dup-id", parent, instances[0].OriginalAnchor)
	err := store.InTx(ctx, func(tx storage.Tx) error {
		return tx.CreateOccurrence(ctx, dup)
	})
	assert.True(t, storage.IsConflict(err))

	// A soft-deleted slot no longer blocks creation.
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SoftDeleteOccurrence(ctx, instances[0].ID)
	}))
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		return tx.CreateOccurrence(ctx, dup)
	}))
}

func TestStore_TxRollsBackOnError(t *testing.T) {
	store := New()
	parent, _ := seedParentWithInstances(t, store, 0)
	ctx := context.Background()
	boom := errors.New("side effect failed")

	inst := storage.NewTestInstance("rollback-inst", parent, parent.Start.AddDate(0, 0, 7))
	err := store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateOccurrence(ctx, inst); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetOccurrence(ctx, inst.ID)
	assert.True(t, storage.IsNotFound(err), "nothing from the failed transaction persists")
}

func TestStore_FindInstanceByAnchor(t *testing.T) {
	store := New()
	parent, instances := seedParentWithInstances(t, store, 2)
	ctx := context.Background()

	got, err := store.FindInstanceByAnchor(ctx, parent.ID, instances[0].OriginalAnchor)
	require.NoError(t, err)
	assert.Equal(t, instances[0].ID, got.ID)

	_, err = store.FindInstanceByAnchor(ctx, parent.ID, parent.Start.AddDate(0, 0, 3))
	assert.True(t, storage.IsNotFound(err))

	// Soft-deleted rows stay findable.
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SoftDeleteOccurrence(ctx, instances[1].ID)
	}))
	got, err = store.FindInstanceByAnchor(ctx, parent.ID, instances[1].OriginalAnchor)
	require.NoError(t, err)
	assert.True(t, got.Deleted())

	// When a live row replaces a deleted one, the live row wins.
	replacement := storage.NewTestInstance("replacement", parent, instances[1].OriginalAnchor)
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		return tx.CreateOccurrence(ctx, replacement)
	}))
	got, err = store.FindInstanceByAnchor(ctx, parent.ID, instances[1].OriginalAnchor)
	require.NoError(t, err)
	assert.Equal(t, "replacement", got.ID)
}

func TestStore_ListInstances(t *testing.T) {
	store := New()
	parent, instances := seedParentWithInstances(t, store, 4)
	ctx := context.Background()

	markCanceled := instances[3]
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		clone := markCanceled.Clone()
		clone.Status = storage.StatusCanceled
		return tx.UpdateOccurrence(ctx, clone)
	}))
	require.NoError(t, store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SoftDeleteOccurrence(ctx, instances[0].ID)
	}))

	t.Run("defaults exclude deleted, keep order", func(t *testing.T) {
		got, err := store.ListInstances(ctx, parent.ID, storage.ListOptions{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].OriginalAnchor.Before(got[i].OriginalAnchor))
		}
	})

	t.Run("anchor-from filters by date", func(t *testing.T) {
		from := instances[2].OriginalAnchor
		got, err := store.ListInstances(ctx, parent.ID, storage.ListOptions{AnchorFrom: &from})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("status exclusion", func(t *testing.T) {
		got, err := store.ListInstances(ctx, parent.ID, storage.ListOptions{
			ExcludeStatuses: []storage.Status{storage.StatusCanceled},
		})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("include deleted", func(t *testing.T) {
		got, err := store.ListInstances(ctx, parent.ID, storage.ListOptions{IncludeDeleted: true})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})
}

func TestStore_SoftDeleteMissing(t *testing.T) {
	store := New()
	err := store.InTx(context.Background(), func(tx storage.Tx) error {
		return tx.SoftDeleteOccurrence(context.Background(), "missing")
	})
	assert.True(t, storage.IsNotFound(err))
}
