package series

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/karstenv/seriescal/recurrence"
	"github.com/karstenv/seriescal/storage"
)

// DefaultGenerationCap bounds eager generation for until-date rules, which
// carry no explicit count. Count-based rules are bounded by their count.
const DefaultGenerationCap = 500

// Generate produces the instance rows for a finite series, stepping forward
// from the parent's own start. Generation stops when maxCount instances have
// been produced or when the next anchor's date passes the effective cutoff
// (the earliest of the rule's until-date, the until argument, and the
// parent's series end override).
//
// Each instance copies the parent's business snapshot with status reset to
// uncompleted, no rule of its own, the call-reminder completion flag cleared
// and the reminder schedule carried over. Nothing is persisted here.
//
// A misconfigured rule stops generation immediately: the instances produced
// so far are returned and no error is raised past them.
func Generate(parent *storage.Occurrence, rule recurrence.Rule, maxCount int, until mo.Option[time.Time], now time.Time) []*storage.Occurrence {
	cutoff := rule.EffectiveCutoff(parent.SeriesEnd())
	if u, ok := until.Get(); ok {
		u = recurrence.DateOnly(u)
		if c, has := cutoff.Get(); !has || u.Before(c) {
			cutoff = mo.Some(u)
		}
	}

	var out []*storage.Occurrence
	anchor := parent.Start
	for len(out) < maxCount {
		next, err := recurrence.Next(anchor, rule.Freq, rule.Interval)
		if err != nil {
			break
		}
		if c, ok := cutoff.Get(); ok && recurrence.DateOnly(next).After(c) {
			break
		}
		out = append(out, instanceFrom(parent, next, now))
		anchor = next
	}
	return out
}

// instanceFrom builds a fresh instance of parent anchored at anchor,
// applying the snapshot copy rules shared by eager generation and lazy
// materialization.
func instanceFrom(parent *storage.Occurrence, anchor time.Time, now time.Time) *storage.Occurrence {
	return &storage.Occurrence{
		ID:             uuid.NewString(),
		CalendarID:     parent.CalendarID,
		Start:          anchor,
		End:            anchor.Add(parent.Duration()),
		AllDay:         parent.AllDay,
		Status:         storage.StatusUncompleted,
		Snapshot:       parent.Snapshot.CopyForInstance(),
		ParentID:       parent.ID,
		OriginalAnchor: anchor,
		Created:        now,
		Modified:       now,
	}
}
