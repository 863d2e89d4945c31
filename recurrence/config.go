package recurrence

import "time"

// Safety bounds. These exist to bound worst-case work per call; exceeding a
// cap truncates the result rather than failing.
const (
	// DefaultExpansionCap limits how many virtual occurrences a single
	// window expansion may emit.
	DefaultExpansionCap = 200

	// DefaultOrdinalCap limits how many steps an ordinal lookup may take
	// before giving up.
	DefaultOrdinalCap = 502

	// DefaultWindowDays is the length of the default display window.
	DefaultWindowDays = 30
)

// DefaultWindow returns the default display window [start, end) for the
// given reference time: the start of now's day through DefaultWindowDays
// later. Callers own "now"; nothing in this package reads the wall clock.
func DefaultWindow(now time.Time) (start, end time.Time) {
	start = DateOnly(now)
	end = start.AddDate(0, 0, DefaultWindowDays)
	return start, end
}
