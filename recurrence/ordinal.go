package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Ordinal recomputes the 1-based position of an instance within its series
// by re-running the stepper from the parent's anchor. The parent is always
// ordinal 1. Anchors are matched by calendar date, so a time-of-day edit on
// an instance does not lose its position as long as original_anchor is
// intact.
//
// Returns None when the anchor was never part of the series (a stepped
// anchor passes it without matching), when the rule is misconfigured, or
// when limit steps are exhausted; limit <= 0 selects DefaultOrdinalCap.
// Callers must treat None as "display without a number", never as fatal.
func Ordinal(parentStart time.Time, rule Rule, instanceAnchor time.Time, limit int) mo.Option[int] {
	if limit <= 0 {
		limit = DefaultOrdinalCap
	}
	if SameDate(parentStart, instanceAnchor) {
		return mo.Some(1)
	}

	target := DateOnly(instanceAnchor)
	anchor := parentStart
	for ordinal := 2; ordinal < limit+2; ordinal++ {
		next, err := Next(anchor, rule.Freq, rule.Interval)
		if err != nil {
			return mo.None[int]()
		}
		if SameDate(next, instanceAnchor) {
			return mo.Some(ordinal)
		}
		if DateOnly(next).After(target) {
			return mo.None[int]()
		}
		anchor = next
	}
	return mo.None[int]()
}
