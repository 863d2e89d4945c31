package storage

import (
	"time"

	"github.com/samber/mo"

	"github.com/karstenv/seriescal/recurrence"
)

// Status is the lifecycle state of an occurrence. Completed and canceled
// occurrences are terminal: they are historical record and are never
// overwritten by regeneration.
type Status string

const (
	StatusUncompleted Status = "uncompleted"
	StatusCompleted   Status = "completed"
	StatusCanceled    Status = "canceled"
)

// Terminal reports whether the status is a terminal (historical) state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Snapshot holds the business fields copied from a series parent onto each
// generated or materialized instance. The copy happens field-by-field at
// generation time; later edits to the parent do not flow through.
type Snapshot struct {
	CustomerName  string `db:"customer_name" json:"customer_name"`
	CustomerPhone string `db:"customer_phone" json:"customer_phone"`
	CustomerEmail string `db:"customer_email" json:"customer_email"`
	ContactName   string `db:"contact_name" json:"contact_name"`
	TrailerInfo   string `db:"trailer_info" json:"trailer_info"`
	Notes         string `db:"notes" json:"notes"`

	// ReminderWeeksPrior is the call-reminder schedule; it is copied to
	// instances so each instance derives its reminder from its own start.
	ReminderWeeksPrior int `db:"reminder_weeks_prior" json:"reminder_weeks_prior"`
	// ReminderCompleted is reset to false on every copy.
	ReminderCompleted bool `db:"reminder_completed" json:"reminder_completed"`
}

// CopyForInstance returns the snapshot as it should appear on a freshly
// generated instance: the reminder schedule carries over, the reminder
// completion flag resets.
func (s Snapshot) CopyForInstance() Snapshot {
	out := s
	out.ReminderCompleted = false
	return out
}

// Occurrence is a scheduled appointment. A series parent has an empty
// ParentID and exclusively owns its Rule; instances reference the parent by
// non-owning identity and never carry a rule of their own.
type Occurrence struct {
	ID         string
	CalendarID string
	Start      time.Time
	End        time.Time
	AllDay     bool
	Status     Status
	Snapshot   Snapshot

	// ParentID is empty for a series parent, and the parent's ID for any
	// generated or materialized instance.
	ParentID string

	// OriginalAnchor is set on instances only: the originally intended
	// start for this slot in the series. It is the alignment key and never
	// changes, even if Start/End is later edited.
	OriginalAnchor time.Time

	// Rule is non-nil only on a series parent.
	Rule *recurrence.Rule

	// SeriesEndOverride truncates the series without rewriting the rule:
	// no occurrence, real or virtual, may have an anchor date after it.
	// Parent-only.
	SeriesEndOverride *time.Time

	// DeletedAt marks a soft delete. Soft-deleted rows stay visible to
	// exact-anchor lookups so materialization never recreates a slot the
	// user removed.
	DeletedAt *time.Time

	Created  time.Time
	Modified time.Time
}

// IsSeriesParent reports whether the occurrence is a series parent (or a
// standalone appointment) rather than a generated instance.
func (o *Occurrence) IsSeriesParent() bool {
	return o.ParentID == ""
}

// Anchor is the date-alignment key of the occurrence: OriginalAnchor for
// instances, Start for a parent.
func (o *Occurrence) Anchor() time.Time {
	if !o.OriginalAnchor.IsZero() {
		return o.OriginalAnchor
	}
	return o.Start
}

// Duration is the fixed occurrence length, End minus Start.
func (o *Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// Deleted reports whether the occurrence has been soft-deleted.
func (o *Occurrence) Deleted() bool {
	return o.DeletedAt != nil
}

// SeriesEnd wraps SeriesEndOverride as an option for the recurrence package.
func (o *Occurrence) SeriesEnd() mo.Option[time.Time] {
	if o.SeriesEndOverride == nil {
		return mo.None[time.Time]()
	}
	return mo.Some(*o.SeriesEndOverride)
}

// Series captures the parent state a stepping calculation needs, read once
// so a concurrent rule edit cannot be observed mid-loop. The rule is
// dereferenced into the snapshot.
func (o *Occurrence) Series() recurrence.Series {
	s := recurrence.Series{
		ParentID:  o.ID,
		Start:     o.Start,
		End:       o.End,
		SeriesEnd: o.SeriesEnd(),
	}
	if o.Rule != nil {
		s.Rule = *o.Rule
	}
	return s
}

// Clone returns a deep copy of the occurrence.
func (o *Occurrence) Clone() *Occurrence {
	out := *o
	if o.Rule != nil {
		rule := *o.Rule
		out.Rule = &rule
	}
	if o.SeriesEndOverride != nil {
		end := *o.SeriesEndOverride
		out.SeriesEndOverride = &end
	}
	if o.DeletedAt != nil {
		at := *o.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}

// ListOptions filters ListInstances queries.
type ListOptions struct {
	// AnchorFrom keeps only instances whose anchor date is >= this date.
	AnchorFrom *time.Time
	// ExcludeStatuses drops instances in any of the given statuses.
	ExcludeStatuses []Status
	// IncludeDeleted also returns soft-deleted instances.
	IncludeDeleted bool
}

// Excludes reports whether the options filter out the given status.
func (o ListOptions) Excludes(s Status) bool {
	for _, ex := range o.ExcludeStatuses {
		if ex == s {
			return true
		}
	}
	return false
}
