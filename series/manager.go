package series

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

// ErrScopeViolation is returned when a scope-limited operation is rejected,
// e.g. a this-only delete of a parent that still has live instances. The
// wrapped message carries the reason; no mutation has occurred.
var ErrScopeViolation = errors.New("scope violation")

// InstanceHook is invoked once per newly created or materialized instance,
// inside the same transaction that creates it. It exists for the external
// call-reminder feature: a reminder row derived from the instance's own
// start is written alongside the instance. Returning an error aborts the
// whole transaction, so an instance is never committed without its side
// effects.
type InstanceHook func(ctx context.Context, tx storage.Tx, inst *storage.Occurrence) error

// Options configures a Manager. The zero value is usable: logging is
// discarded, time.Now is the clock, and no instance hook runs.
type Options struct {
	Logger            *slog.Logger
	Now               func() time.Time
	OnInstanceCreated InstanceHook
}

// Manager orchestrates series operations over a Store: eager generation for
// finite series, lazy materialization for forever series, and the
// scope-limited lifecycle mutations. Each method runs to completion within
// one logical unit of work; the Manager owns no background state.
type Manager struct {
	store     storage.Store
	logger    *slog.Logger
	now       func() time.Time
	onCreated InstanceHook
}

// New creates a Manager over the given store.
func New(store storage.Store, opts *Options) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("series: store is required")
	}
	if opts == nil {
		opts = &Options{}
	}
	m := &Manager{
		store:     store,
		logger:    opts.Logger,
		now:       opts.Now,
		onCreated: opts.OnInstanceCreated,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// CreateSeries persists the parent and, for finite rules, its eagerly
// generated instances, all in one transaction. Forever rules persist the
// parent alone; their occurrences are computed on demand and materialized
// lazily. Returns the created instances.
func (m *Manager) CreateSeries(ctx context.Context, parent *storage.Occurrence) ([]*storage.Occurrence, error) {
	if !parent.IsSeriesParent() {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "only a parent occurrence may carry a rule",
		}
	}

	now := m.now()
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	if parent.Status == "" {
		parent.Status = storage.StatusUncompleted
	}
	if parent.Created.IsZero() {
		parent.Created = now
	}
	parent.Modified = now

	var instances []*storage.Occurrence
	if parent.Rule != nil {
		if err := parent.Rule.Validate(); err != nil {
			return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "invalid rule", Err: err}
		}
		if !parent.Rule.IsForever() {
			instances = Generate(parent, *parent.Rule, generationLimit(*parent.Rule), mo.None[time.Time](), now)
		}
	}

	err := m.store.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.CreateOccurrence(ctx, parent); err != nil {
			return err
		}
		return m.createInstances(ctx, tx, instances)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("series created",
		"parent_id", parent.ID, "instances", len(instances))
	return instances, nil
}

// ExpandWindow computes the virtual occurrences of the given series inside
// [windowStart, windowEnd]. Parent state is read once, so a concurrent rule
// edit cannot produce a mixed result. Pass limit <= 0 for the default
// expansion cap.
func (m *Manager) ExpandWindow(ctx context.Context, parentID string, windowStart, windowEnd time.Time, limit int) ([]recurrence.VirtualOccurrence, error) {
	parent, err := m.seriesParent(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return recurrence.Expand(parent.Series(), windowStart, windowEnd, limit), nil
}

// Materialize converts one virtual occurrence into a persisted instance,
// exactly once per (parent, originalAnchor). An existing instance, live or
// soft-deleted, is returned as-is with created=false. Otherwise a new
// instance is created transactionally alongside its hook side effects; a
// losing concurrent writer hits the store's uniqueness constraint and
// retries the lookup, returning the winner's row.
func (m *Manager) Materialize(ctx context.Context, parentID string, originalAnchor time.Time) (*storage.Occurrence, bool, error) {
	parent, err := m.seriesParent(ctx, parentID)
	if err != nil {
		return nil, false, err
	}
	anchor := originalAnchor.In(parent.Start.Location())

	existing, err := m.store.FindInstanceByAnchor(ctx, parentID, anchor)
	if err == nil {
		return existing, false, nil
	}
	if !storage.IsNotFound(err) {
		return nil, false, err
	}

	inst := instanceFrom(parent, anchor, m.now())
	err = m.store.InTx(ctx, func(tx storage.Tx) error {
		return m.createInstances(ctx, tx, []*storage.Occurrence{inst})
	})
	if err == nil {
		m.logger.Info("instance materialized",
			"parent_id", parentID, "anchor", anchor, "instance_id", inst.ID)
		return inst, true, nil
	}
	if !storage.IsConflict(err) {
		return nil, false, err
	}

	// Lost the race: the winner's row must exist now.
	winner, findErr := m.store.FindInstanceByAnchor(ctx, parentID, anchor)
	if findErr != nil {
		return nil, false, &storage.Error{
			Type:    storage.ErrInternal,
			Message: "materialization conflict with no surviving instance",
			Err:     errors.Join(err, findErr),
		}
	}
	return winner, false, nil
}

// Ordinal recomputes the 1-based series position of the given instance from
// its parent's current rule. None means the anchor is not part of the
// series; callers display the occurrence without a number.
func (m *Manager) Ordinal(ctx context.Context, inst *storage.Occurrence) (mo.Option[int], error) {
	if inst.IsSeriesParent() {
		return mo.Some(1), nil
	}
	parent, err := m.seriesParent(ctx, inst.ParentID)
	if err != nil {
		return mo.None[int](), err
	}
	if parent.Rule == nil {
		return mo.None[int](), nil
	}
	return recurrence.Ordinal(parent.Start, *parent.Rule, inst.OriginalAnchor, recurrence.DefaultOrdinalCap), nil
}

// seriesParent loads an occurrence and checks it is a parent.
func (m *Manager) seriesParent(ctx context.Context, parentID string) (*storage.Occurrence, error) {
	parent, err := m.store.GetOccurrence(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsSeriesParent() {
		return nil, &storage.Error{
			Type:    storage.ErrInvalidInput,
			Message: "occurrence is not a series parent",
		}
	}
	return parent, nil
}

// createInstances creates each instance and runs the instance hook for it
// inside tx.
func (m *Manager) createInstances(ctx context.Context, tx storage.Tx, instances []*storage.Occurrence) error {
	for _, inst := range instances {
		if err := tx.CreateOccurrence(ctx, inst); err != nil {
			return err
		}
		if m.onCreated != nil {
			if err := m.onCreated(ctx, tx, inst); err != nil {
				return fmt.Errorf("series: instance hook for %s: %w", inst.ID, err)
			}
		}
	}
	return nil
}

// generationLimit is the max_count for eager generation: the rule's count
// when present, otherwise the until-date safety bound.
func generationLimit(rule recurrence.Rule) int {
	if rule.Count > 0 {
		return rule.Count
	}
	return DefaultGenerationCap
}
