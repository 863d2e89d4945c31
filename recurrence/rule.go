package recurrence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Rule is a recurrence rule owned by exactly one series parent. Termination
// is at most one of Count, Until, or Never; a rule with neither Count nor
// Until is treated the same as an explicit Never marker (forever).
type Rule struct {
	Freq Frequency
	// Interval is the step multiplier, e.g. 2 for "every 2 weeks".
	Interval int
	// Count is the number of repeats generated beyond the parent, not
	// including the parent itself. Zero means unset.
	Count int
	// Until is the inclusive calendar-date cutoff. Zero means unset.
	Until time.Time
	// Never marks the series as explicitly unbounded.
	Never bool
}

// IsForever reports whether the rule describes an unbounded series: either
// the explicit Never marker is set, or both Count and Until are absent.
func (r Rule) IsForever() bool {
	return r.Never || (r.Count == 0 && r.Until.IsZero())
}

// EffectiveCutoff returns the earliest of the rule's until-date and the
// series end override, or None if both are absent. Count-based termination
// does not produce a date cutoff.
func (r Rule) EffectiveCutoff(seriesEnd mo.Option[time.Time]) mo.Option[time.Time] {
	cutoff := mo.None[time.Time]()
	if !r.Until.IsZero() {
		cutoff = mo.Some(DateOnly(r.Until))
	}
	if end, ok := seriesEnd.Get(); ok {
		end = DateOnly(end)
		if c, has := cutoff.Get(); !has || end.Before(c) {
			cutoff = mo.Some(end)
		}
	}
	return cutoff
}

// Validate checks the rule for internal consistency. Absence of any
// termination is legal (forever), but Count and Until together are not.
func (r Rule) Validate() error {
	switch r.Freq {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
	default:
		return fmt.Errorf("recurrence: unknown frequency %d", int(r.Freq))
	}
	if r.Interval < 1 {
		return fmt.Errorf("recurrence: interval must be positive, got %d", r.Interval)
	}
	if r.Count < 0 {
		return fmt.Errorf("recurrence: count must be positive, got %d", r.Count)
	}
	if r.Count > 0 && !r.Until.IsZero() {
		return fmt.Errorf("recurrence: count and until_date are mutually exclusive")
	}
	return nil
}

// Summary renders a human-readable description of the rule, e.g.
// "Repeats every 2 weeks • 6 occurrences" or "Repeats monthly • Forever".
// Count-based summaries report Count+1 total occurrences, since the stored
// count does not include the parent.
func (r Rule) Summary() string {
	var freq string
	if r.Interval > 1 {
		unit := map[Frequency]string{
			FreqDaily:   "days",
			FreqWeekly:  "weeks",
			FreqMonthly: "months",
			FreqYearly:  "years",
		}[r.Freq]
		freq = fmt.Sprintf("Repeats every %d %s", r.Interval, unit)
	} else {
		freq = "Repeats " + r.Freq.String()
	}

	switch {
	case r.Count > 0:
		return fmt.Sprintf("%s • %d occurrences", freq, r.Count+1)
	case !r.Until.IsZero():
		return fmt.Sprintf("%s • Until %s", freq, r.Until.Format("Jan 2, 2006"))
	default:
		return freq + " • Forever"
	}
}

// Record is the persisted form of a rule, as stored alongside the series
// parent. Count, UntilDate and End are mutually exclusive; all three absent
// reads as forever.
type Record struct {
	Type      string  `json:"type"`
	Interval  int     `json:"interval"`
	Count     *int    `json:"count"`
	UntilDate *string `json:"until_date"`
	End       *string `json:"end"`
}

const untilDateLayout = "2006-01-02"

// ParseRecord converts a persisted record into a Rule. An unrecognized type
// or a malformed until-date is a configuration error.
func ParseRecord(rec Record) (Rule, error) {
	var freq Frequency
	switch rec.Type {
	case "daily":
		freq = FreqDaily
	case "weekly":
		freq = FreqWeekly
	case "monthly":
		freq = FreqMonthly
	case "yearly":
		freq = FreqYearly
	default:
		return Rule{}, fmt.Errorf("recurrence: unknown rule type %q", rec.Type)
	}

	rule := Rule{Freq: freq, Interval: rec.Interval}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if rec.Count != nil {
		rule.Count = *rec.Count
	}
	if rec.UntilDate != nil {
		until, err := time.Parse(untilDateLayout, *rec.UntilDate)
		if err != nil {
			return Rule{}, fmt.Errorf("recurrence: malformed until_date %q: %w", *rec.UntilDate, err)
		}
		rule.Until = until
	}
	if rec.End != nil && *rec.End == "never" {
		rule.Never = true
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Record converts the rule back into its persisted form.
func (r Rule) Record() Record {
	rec := Record{Type: r.Freq.String(), Interval: r.Interval}
	if r.Count > 0 {
		count := r.Count
		rec.Count = &count
	}
	if !r.Until.IsZero() {
		until := r.Until.Format(untilDateLayout)
		rec.UntilDate = &until
	}
	if r.Never {
		never := "never"
		rec.End = &never
	}
	return rec
}

// MarshalJSON encodes the rule in its Record form.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record())
}

// UnmarshalJSON decodes a rule from its Record form.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	rule, err := ParseRecord(rec)
	if err != nil {
		return err
	}
	*r = rule
	return nil
}
