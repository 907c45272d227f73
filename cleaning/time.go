package cleaning

import "time"

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// DateLayout is the wire format of calendar dates (report ranges, agenda).
const DateLayout = "2006-01-02"

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, invalid("date", "%q is not a YYYY-MM-DD date", s)
	}
	return t, nil
}

// =============================================================================
// DATE RANGE - Inclusive calendar-day window used by reports
// =============================================================================

// DateRange covers [Start 00:00:00, End 23:59:59].
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool {
	return !StartOfDay(r.Start).After(StartOfDay(r.End))
}

// Contains reports whether t lies inside the inclusive day window.
func (r DateRange) Contains(t time.Time) bool {
	from := StartOfDay(r.Start)
	to := EndOfDay(r.End)
	return !t.Before(from) && !t.After(to)
}

func (r DateRange) String() string {
	return "[" + r.Start.Format(DateLayout) + ", " + r.End.Format(DateLayout) + "]"
}

// =============================================================================
// AGENDA WINDOWS - Planner day / week / month views
// =============================================================================

type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// Window returns the calendar days covered by a view around anchor.
// Weeks start on Monday.
func (v View) Window(anchor time.Time) (DateRange, error) {
	day := StartOfDay(anchor)
	switch v {
	case ViewDay, "":
		return DateRange{Start: day, End: day}, nil
	case ViewWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return DateRange{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case ViewMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return DateRange{Start: start, End: start.AddDate(0, 1, -1)}, nil
	default:
		return DateRange{}, invalid("view", "unknown view %q", v)
	}
}

// Days returns every calendar day of the range.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	current := StartOfDay(r.Start)
	last := StartOfDay(r.End)
	for !current.After(last) {
		days = append(days, current)
		current = current.AddDate(0, 0, 1)
	}
	return days
}

func dayKey(t time.Time) string { return t.Format(DateLayout) }

func mustLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
