package recurrence

import "time"

// Expand computes the virtual occurrences of a series that fall inside the
// display window [windowStart, windowEnd], clamped to the series' effective
// cutoff. It is the display path for forever series: no storage is touched,
// the call is safe to repeat concurrently, and identical inputs produce
// identical output.
//
// The parent itself is emitted first (ordinal 0, IsParent set) when its
// anchor date falls inside the window. Stepped occurrences carry the number
// of steps from the parent as their ordinal, so a window that opens
// mid-series still numbers occurrences by series position. Expansion stops
// when a stepped anchor passes the window or cutoff, when the rule's count
// is exhausted, or when limit occurrences have been emitted; limit <= 0
// selects DefaultExpansionCap.
func Expand(s Series, windowStart, windowEnd time.Time, limit int) []VirtualOccurrence {
	if limit <= 0 {
		limit = DefaultExpansionCap
	}

	startDate := DateOnly(windowStart)
	endDate := DateOnly(windowEnd)
	if cutoff, ok := s.Rule.EffectiveCutoff(s.SeriesEnd).Get(); ok && cutoff.Before(endDate) {
		endDate = cutoff
	}
	if endDate.Before(startDate) {
		return nil
	}

	duration := s.End.Sub(s.Start)
	var out []VirtualOccurrence

	parentDate := DateOnly(s.Start)
	if !parentDate.Before(startDate) && !parentDate.After(endDate) {
		out = append(out, VirtualOccurrence{
			ParentID:       s.ParentID,
			OriginalAnchor: s.Start,
			Start:          s.Start,
			End:            s.End,
			Ordinal:        0,
			IsParent:       true,
		})
	}

	anchor := s.Start
	for ordinal := 1; ; ordinal++ {
		next, err := Next(anchor, s.Rule.Freq, s.Rule.Interval)
		if err != nil {
			// Misconfigured rule: no further occurrences.
			break
		}
		if s.Rule.Count > 0 && ordinal > s.Rule.Count {
			break
		}
		if DateOnly(next).After(endDate) {
			break
		}
		if len(out) >= limit {
			break
		}
		if !DateOnly(next).Before(startDate) {
			out = append(out, VirtualOccurrence{
				ParentID:       s.ParentID,
				OriginalAnchor: next,
				Start:          next,
				End:            next.Add(duration),
				Ordinal:        ordinal,
			})
		}
		anchor = next
	}
	return out
}
