/*
Package recurrence is the pure stepping engine behind recurring appointment
series: given a rule and a parent anchor it computes next anchors, expands
bounded display windows of unbounded ("forever") series, and recomputes an
instance's 1-based ordinal position.

Nothing in this package performs I/O or reads the wall clock; every function
is deterministic for identical inputs and safe to call concurrently without
coordination.

# Rules

A Rule has a frequency (daily, weekly, monthly, yearly), a positive interval,
and at most one termination: a repeat count, an inclusive until-date, or the
explicit Never marker. A rule with no termination at all reads as forever,
same as Never.

	rule := recurrence.Rule{Freq: recurrence.FreqWeekly, Interval: 2, Count: 6}
	rule.IsForever() // false
	rule.Summary()   // "Repeats every 2 weeks • 7 occurrences"

# Stepping

Next preserves calendar alignment rather than doing day-count math: monthly
rules keep "the Nth weekday of the month" (with a last-occurrence fallback
when the target month is short), and yearly rules keep the ISO (week,
weekday) pair (retrying earlier weeks in 52-week years).

# Window expansion

Expand produces virtual, never-persisted occurrences of a series inside a
display window, bounded by a safety cap. Materializing one of those virtual
occurrences into a real row is the job of the series package, not this one.
*/
package recurrence
