package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Frequency identifies how a series steps from one occurrence to the next.
type Frequency int

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// String provides a human-readable representation of the Frequency.
func (f Frequency) String() string {
	switch f {
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// Series is the snapshot of parent state a stepping calculation reads.
// Callers must capture it once per call; re-reading the parent mid-loop
// could mix stepping under two different rules if the rule is edited
// concurrently.
type Series struct {
	// ParentID is the identity of the series parent occurrence.
	ParentID string
	// Start is the parent's own start, which is also the series anchor.
	Start time.Time
	// End is the parent's own end; End minus Start fixes the duration of every
	// occurrence in the series.
	End time.Time
	// Rule is the recurrence rule owned by the parent.
	Rule Rule
	// SeriesEnd is the parent's series_end_override: no occurrence, real
	// or virtual, may have an anchor date after it.
	SeriesEnd mo.Option[time.Time]
}

// VirtualOccurrence represents a single computed-on-demand occurrence of a
// series. It is never persisted; it is discarded after the response that
// requested it.
type VirtualOccurrence struct {
	ParentID string
	// OriginalAnchor is the originally intended start for this slot in the
	// series, used as the alignment key when the occurrence is materialized.
	OriginalAnchor time.Time
	Start          time.Time
	End            time.Time
	// Ordinal is the number of steps from the parent; the parent itself is 0.
	Ordinal  int
	IsParent bool
}

// DateOnly truncates t to midnight in its own location. Window and cutoff
// comparisons in this package are calendar-date comparisons, not instant
// comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar date, each in
// its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
