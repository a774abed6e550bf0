package scheduling

import "time"

const minutesPerDay = 24 * 60

// appliesOn reports whether the window is in effect on the given local day.
// day must be a midnight in the practitioner's zone.
func appliesOn(w AvailabilityWindow, day time.Time) bool {
	if w.Date != nil {
		y1, m1, d1 := w.Date.Year(), w.Date.Month(), w.Date.Day()
		y2, m2, d2 := day.Year(), day.Month(), day.Day()
		return y1 == y2 && m1 == m2 && d1 == d2
	}

	// Custom recurrence without an explicit date has nothing to expand.
	if w.Recurrence == RecurrenceCustom {
		return false
	}
	if day.Weekday() != w.DayOfWeek {
		return false
	}

	anchor := midnightOf(w.EffectiveFrom, day.Location())
	if day.Before(anchor) {
		return false
	}
	if w.RecurrenceEnd != nil && day.After(midnightOf(*w.RecurrenceEnd, day.Location())) {
		return false
	}

	switch w.Recurrence {
	case RecurrenceWeekly:
		return true
	case RecurrenceBiweekly:
		// Phase is anchored on EffectiveFrom. Both times are local
		// midnights, so the elapsed duration is a whole number of days
		// give or take a DST hour; rounding recovers the calendar count.
		days := int((day.Sub(anchor) + 12*time.Hour) / (24 * time.Hour))
		return (days/7)%2 == 0
	case RecurrenceMonthly:
		// Same weekday-ordinal within the month as the anchor.
		return (day.Day()-1)/7 == (anchor.Day()-1)/7
	}
	return false
}

func midnightOf(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// WithinAvailability checks that [start, end) falls inside the
// practitioner's configured working hours in the given zone. The proposed
// range must start and end on one local calendar day, sit fully inside an
// available window applying on that day, and stay clear of blocked windows.
// A practitioner with no windows configured is unrestricted.
func WithinAvailability(windows []AvailabilityWindow, start, end time.Time, loc *time.Location) error {
	if len(windows) == 0 {
		return nil
	}

	day := midnightOf(start, loc)
	startMin := minuteOfDay(start, day)
	endMin := minuteOfDay(end, day)
	if endMin > minutesPerDay {
		return &ValidationError{Field: "endTime", Reason: "appointment must not cross midnight in the practitioner's time zone"}
	}

	covered := false
	for _, w := range windows {
		if !appliesOn(w, day) {
			continue
		}
		if !w.IsAvailable {
			// Blocked override: any overlap with it rejects the slot.
			if startMin < w.EndMinute && w.StartMinute < endMin {
				return &ValidationError{Field: "startTime", Reason: "requested time is blocked on the practitioner's calendar"}
			}
			continue
		}
		if w.StartMinute <= startMin && endMin <= w.EndMinute {
			covered = true
		}
	}

	if !covered {
		return &ValidationError{Field: "startTime", Reason: "requested time is outside the practitioner's working hours"}
	}
	return nil
}

// SameLocalDay reports whether [start, end) begins and ends within a single
// calendar day in loc. An end falling exactly on the next midnight counts,
// since the interval is half-open.
func SameLocalDay(start, end time.Time, loc *time.Location) bool {
	day := midnightOf(start, loc)
	return !end.In(loc).After(day.AddDate(0, 0, 1))
}

func minuteOfDay(t time.Time, dayStart time.Time) int {
	return int(t.In(dayStart.Location()).Sub(dayStart) / time.Minute)
}
