package series

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

// Scope determines which occurrences of a series a delete affects.
type Scope string

const (
	// ScopeThisOnly soft-deletes exactly one instance. A parent with live
	// instances is a template, not a deletable leaf, and is rejected.
	ScopeThisOnly Scope = "this_only"
	// ScopeThisAndFuture soft-deletes the target and every non-completed
	// instance at or after it, then truncates the series via the parent's
	// series end override. Completed instances stay.
	ScopeThisAndFuture Scope = "this_and_future"
	// ScopeAll soft-deletes every instance regardless of status, plus the
	// parent.
	ScopeAll Scope = "all"
)

// DeleteWithScope applies a scope-limited soft deletion rooted at the given
// occurrence. All mutations of a call happen in one transaction; a rejected
// scope leaves the store untouched.
func (m *Manager) DeleteWithScope(ctx context.Context, id string, scope Scope) error {
	occ, err := m.store.GetOccurrence(ctx, id)
	if err != nil {
		return err
	}

	switch scope {
	case ScopeThisOnly:
		return m.deleteThisOnly(ctx, occ)
	case ScopeThisAndFuture:
		return m.deleteThisAndFuture(ctx, occ)
	case ScopeAll:
		return m.deleteAll(ctx, occ)
	default:
		return &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: fmt.Sprintf("unknown scope %q", scope),
		}
	}
}

func (m *Manager) deleteThisOnly(ctx context.Context, occ *storage.Occurrence) error {
	if occ.IsSeriesParent() {
		live, err := m.store.ListInstances(ctx, occ.ID, storage.ListOptions{})
		if err != nil {
			return err
		}
		if len(live) > 0 {
			return fmt.Errorf("%w: parent still has %d non-deleted instances", ErrScopeViolation, len(live))
		}
	}
	return m.store.InTx(ctx, func(tx storage.Tx) error {
		return tx.SoftDeleteOccurrence(ctx, occ.ID)
	})
}

func (m *Manager) deleteThisAndFuture(ctx context.Context, occ *storage.Occurrence) error {
	parent := occ
	if !occ.IsSeriesParent() {
		var err error
		parent, err = m.store.GetOccurrence(ctx, occ.ParentID)
		if err != nil {
			return err
		}
	}

	targetAnchor := occ.Anchor()
	future, err := m.store.ListInstances(ctx, parent.ID, storage.ListOptions{
		AnchorFrom:      &targetAnchor,
		ExcludeStatuses: []storage.Status{storage.StatusCompleted},
	})
	if err != nil {
		return err
	}

	// The target itself goes regardless of status; completed siblings stay.
	toDelete := future
	if !occ.IsSeriesParent() && !containsID(future, occ.ID) {
		toDelete = append([]*storage.Occurrence{occ}, future...)
	}

	var override time.Time
	if occ.IsSeriesParent() {
		// Ending at the parent truncates the series to its first
		// occurrence; the parent row itself survives.
		override = recurrence.DateOnly(parent.Start)
	} else {
		earliest := targetAnchor
		for _, inst := range toDelete {
			if inst.Anchor().Before(earliest) {
				earliest = inst.Anchor()
			}
		}
		override = recurrence.DateOnly(earliest).AddDate(0, 0, -1)
	}

	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		for _, inst := range toDelete {
			if err := tx.SoftDeleteOccurrence(ctx, inst.ID); err != nil {
				return err
			}
		}
		parent.SeriesEndOverride = &override
		parent.Modified = m.now()
		return tx.UpdateOccurrence(ctx, parent)
	})
	if err != nil {
		return err
	}

	m.logger.Info("series truncated",
		"parent_id", parent.ID, "deleted", len(toDelete), "series_end", override)
	return nil
}

func (m *Manager) deleteAll(ctx context.Context, occ *storage.Occurrence) error {
	parent := occ
	if !occ.IsSeriesParent() {
		var err error
		parent, err = m.store.GetOccurrence(ctx, occ.ParentID)
		if err != nil {
			return err
		}
	}
	instances, err := m.store.ListInstances(ctx, parent.ID, storage.ListOptions{})
	if err != nil {
		return err
	}

	return m.store.InTx(ctx, func(tx storage.Tx) error {
		for _, inst := range instances {
			if err := tx.SoftDeleteOccurrence(ctx, inst.ID); err != nil {
				return err
			}
		}
		return tx.SoftDeleteOccurrence(ctx, parent.ID)
	})
}

// Regenerate rebuilds a series after a rule edit: all non-terminal
// instances are soft-deleted and replaced by instances generated from the
// parent's current rule, in one transaction. Completed and canceled
// instances are historical record and stay untouched; a regenerated slot
// whose anchor date collides with one of them is skipped rather than
// duplicated. Returns the newly created instances.
func (m *Manager) Regenerate(ctx context.Context, parentID string) ([]*storage.Occurrence, error) {
	parent, err := m.seriesParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Rule == nil {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "occurrence has no recurrence rule",
		}
	}
	if err := parent.Rule.Validate(); err != nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "invalid rule", Err: err}
	}

	existing, err := m.store.ListInstances(ctx, parentID, storage.ListOptions{})
	if err != nil {
		return nil, err
	}
	var stale, terminal []*storage.Occurrence
	for _, inst := range existing {
		if inst.Status.Terminal() {
			terminal = append(terminal, inst)
		} else {
			stale = append(stale, inst)
		}
	}

	now := m.now()
	var created []*storage.Occurrence
	if !parent.Rule.IsForever() {
		for _, inst := range Generate(parent, *parent.Rule, generationLimit(*parent.Rule), mo.None[time.Time](), now) {
			if occupiedOn(terminal, inst.OriginalAnchor) {
				continue
			}
			created = append(created, inst)
		}
	}

	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		for _, inst := range stale {
			if err := tx.SoftDeleteOccurrence(ctx, inst.ID); err != nil {
				return err
			}
		}
		return m.createInstances(ctx, tx, created)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("series regenerated",
		"parent_id", parentID, "removed", len(stale), "created", len(created), "kept", len(terminal))
	return created, nil
}

// CancelFutureRecurrences ends the series at from: the parent's series end
// override is set to from's date and every non-completed, non-canceled
// instance anchored on or after it is marked canceled, not deleted. Returns
// the number of instances canceled.
func (m *Manager) CancelFutureRecurrences(ctx context.Context, parentID string, from time.Time) (int, error) {
	parent, err := m.seriesParent(ctx, parentID)
	if err != nil {
		return 0, err
	}

	targets, err := m.store.ListInstances(ctx, parentID, storage.ListOptions{
		AnchorFrom:      &from,
		ExcludeStatuses: []storage.Status{storage.StatusCompleted, storage.StatusCanceled},
	})
	if err != nil {
		return 0, err
	}

	now := m.now()
	override := recurrence.DateOnly(from)
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		parent.SeriesEndOverride = &override
		parent.Modified = now
		if err := tx.UpdateOccurrence(ctx, parent); err != nil {
			return err
		}
		for _, inst := range targets {
			inst.Status = storage.StatusCanceled
			inst.Modified = now
			if err := tx.UpdateOccurrence(ctx, inst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("future recurrences canceled",
		"parent_id", parentID, "from", override, "canceled", len(targets))
	return len(targets), nil
}

func containsID(occs []*storage.Occurrence, id string) bool {
	for _, occ := range occs {
		if occ.ID == id {
			return true
		}
	}
	return false
}

func occupiedOn(occs []*storage.Occurrence, anchor time.Time) bool {
	for _, occ := range occs {
		if recurrence.SameDate(occ.Anchor(), anchor) {
			return true
		}
	}
	return false
}
