package recurrence

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const prodID = "-//seriescal//seriescal//EN"

var rruleWeekday = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// RRuleString renders the rule as an iCalendar RRULE value anchored at
// start. This is an export-only mapping of the narrow rule shape; the
// library does not parse or evaluate general RRULE grammar.
//
// Monthly rules are expressed as BYDAY with an ordinal ("3TU" for the 3rd
// Tuesday); yearly rules as BYWEEKNO plus BYDAY, matching the ISO week and
// weekday the stepper preserves. A count-based rule emits COUNT=count+1,
// since RRULE counts include the DTSTART occurrence and the stored count
// does not.
func (r Rule) RRuleString(start time.Time) (string, error) {
	opt := rrule.ROption{
		Interval: r.Interval,
		Dtstart:  start,
	}

	switch r.Freq {
	case FreqDaily:
		opt.Freq = rrule.DAILY
	case FreqWeekly:
		opt.Freq = rrule.WEEKLY
	case FreqMonthly:
		opt.Freq = rrule.MONTHLY
		nth := (start.Day()-1)/7 + 1
		wd := rruleWeekday[start.Weekday()]
		opt.Byweekday = []rrule.Weekday{wd.Nth(nth)}
	case FreqYearly:
		opt.Freq = rrule.YEARLY
		_, isoWeek := start.ISOWeek()
		opt.Byweekno = []int{isoWeek}
		opt.Byweekday = []rrule.Weekday{rruleWeekday[start.Weekday()]}
	default:
		return "", fmt.Errorf("recurrence: unknown frequency %d", int(r.Freq))
	}

	if r.Count > 0 {
		opt.Count = r.Count + 1
	}
	if !r.Until.IsZero() {
		y, m, d := r.Until.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("recurrence: building RRULE: %w", err)
	}
	return rule.String(), nil
}

// ExportSeries renders a series as a VCALENDAR holding a single recurring
// VEVENT: the parent with its RRULE attached.
func ExportSeries(s Series, summary string) (*ical.Calendar, error) {
	value, err := s.Rule.RRuleString(s.Start)
	if err != nil {
		return nil, err
	}

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, s.ParentID)
	event.Props.SetText(ical.PropSummary, summary)
	event.Props.SetDateTime(ical.PropDateTimeStart, s.Start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, s.End)
	event.Props.SetText(ical.PropRecurrenceRule, value)

	cal := newCalendar()
	cal.Children = append(cal.Children, event)
	return cal, nil
}

// ExportWindow renders an expanded window as a VCALENDAR with one discrete
// VEVENT per occurrence. Useful for handing a bounded slice of a forever
// series to a consumer that does not evaluate recurrence itself.
func ExportWindow(s Series, occurrences []VirtualOccurrence, summary string) *ical.Calendar {
	cal := newCalendar()
	for _, occ := range occurrences {
		uid := s.ParentID
		if !occ.IsParent {
			uid = fmt.Sprintf("%s-%s", s.ParentID, occ.OriginalAnchor.Format("20060102T150405"))
		}

		event := ical.NewComponent(ical.CompEvent)
		event.Props.SetText(ical.PropUID, uid)
		event.Props.SetText(ical.PropSummary, summary)
		event.Props.SetDateTime(ical.PropDateTimeStart, occ.Start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, occ.End)
		cal.Children = append(cal.Children, event)
	}
	return cal
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	return cal
}
