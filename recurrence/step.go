package recurrence

import (
	"fmt"
	"time"
)

// Next computes the anchor that follows anchor under the given frequency and
// interval. Time-of-day and location are always preserved; all arithmetic is
// performed in the anchor's own calendar. Pure and deterministic.
//
// Monthly stepping preserves "Nth weekday of the month": an anchor on the
// 3rd Tuesday of January steps to the 3rd Tuesday of the target month. If
// the target month has no Nth occurrence of that weekday, the last
// occurrence is used instead; if even that cannot be computed, naive
// add-months arithmetic is the final fallback.
//
// Yearly stepping preserves the ISO (week, weekday) of the anchor. If the
// target ISO year lacks that week (years have 52 or 53 ISO weeks), the two
// preceding weeks are tried before falling back to naive add-years
// arithmetic.
func Next(anchor time.Time, freq Frequency, interval int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("recurrence: interval must be positive, got %d", interval)
	}
	switch freq {
	case FreqDaily:
		return anchor.AddDate(0, 0, interval), nil
	case FreqWeekly:
		return anchor.AddDate(0, 0, 7*interval), nil
	case FreqMonthly:
		return nextMonthly(anchor, interval), nil
	case FreqYearly:
		return nextYearly(anchor, interval), nil
	default:
		return time.Time{}, fmt.Errorf("recurrence: unknown frequency %d", int(freq))
	}
}

func nextMonthly(anchor time.Time, interval int) time.Time {
	weekday := anchor.Weekday()
	nth := (anchor.Day()-1)/7 + 1

	// Day 1 never overflows when the month is advanced.
	firstOfTarget := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location()).AddDate(0, interval, 0)
	year, month := firstOfTarget.Year(), firstOfTarget.Month()

	if day, ok := nthWeekdayOfMonth(year, month, weekday, nth); ok {
		return atDay(anchor, year, month, day)
	}
	if day, ok := lastWeekdayOfMonth(year, month, weekday); ok {
		return atDay(anchor, year, month, day)
	}
	return anchor.AddDate(0, interval, 0)
}

// nthWeekdayOfMonth returns the day-of-month of the nth occurrence of
// weekday in the given month, or false if the month has fewer than n.
func nthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, nth int) (int, bool) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstMatch := 1 + (7+int(weekday)-int(first.Weekday()))%7
	day := firstMatch + 7*(nth-1)
	if day > daysInMonth(year, month) {
		return 0, false
	}
	return day, true
}

// lastWeekdayOfMonth returns the day-of-month of the final occurrence of
// weekday in the given month.
func lastWeekdayOfMonth(year int, month time.Month, weekday time.Weekday) (int, bool) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstMatch := 1 + (7+int(weekday)-int(first.Weekday()))%7
	days := daysInMonth(year, month)
	if firstMatch > days {
		return 0, false
	}
	day := firstMatch + 7*((days-firstMatch)/7)
	return day, true
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atDay(anchor time.Time, year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day,
		anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), anchor.Location())
}

func nextYearly(anchor time.Time, interval int) time.Time {
	isoYear, isoWeek := anchor.ISOWeek()
	weekday := isoWeekday(anchor)

	for week := isoWeek; week >= isoWeek-2 && week >= 1; week-- {
		if d, ok := fromISOWeek(isoYear+interval, week, weekday, anchor); ok {
			return d
		}
	}
	return anchor.AddDate(interval, 0, 0)
}

// isoWeekday maps time.Weekday to the ISO-8601 numbering, Monday=1..Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd
}

// fromISOWeek reconstructs a datetime from an ISO (year, week, weekday)
// triple, taking time-of-day and location from tod. It reports false when
// the requested week does not exist in that ISO year, detected by
// round-tripping the candidate date through ISOWeek.
func fromISOWeek(isoYear, week, weekday int, tod time.Time) (time.Time, bool) {
	// January 4 is always inside ISO week 1.
	jan4 := time.Date(isoYear, time.January, 4,
		tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), tod.Location())
	week1Monday := jan4.AddDate(0, 0, -(isoWeekday(jan4) - 1))
	candidate := week1Monday.AddDate(0, 0, (week-1)*7+(weekday-1))

	gotYear, gotWeek := candidate.ISOWeek()
	if gotYear != isoYear || gotWeek != week {
		return time.Time{}, false
	}
	return candidate, true
}
