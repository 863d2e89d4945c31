/*
Package series orchestrates recurring appointment series over a
storage.Store: eager instance generation for finite rules, lazy
materialization of virtual occurrences for forever rules, and the
scope-limited lifecycle operations (this_only / this_and_future / all
deletion, rule-change regeneration, cancel-future).

All storage mutations of a single operation run inside one transaction, and
the optional InstanceHook runs in that same transaction for every instance
created, so an instance is never committed without its reminder side
effects. Materialization is idempotent per (parent, original anchor); the
store's uniqueness constraint resolves concurrent races.

	store := memory.New()
	mgr, _ := series.New(store, nil)

	parent := &storage.Occurrence{ ... Rule: &recurrence.Rule{Freq: recurrence.FreqWeekly, Interval: 1} }
	mgr.CreateSeries(ctx, parent)                         // forever: parent only
	occs, _ := mgr.ExpandWindow(ctx, parent.ID, ws, we, 0) // virtual occurrences
	inst, created, _ := mgr.Materialize(ctx, parent.ID, occs[1].OriginalAnchor)
*/
package series
