package cleaning

import "time"

// =============================================================================
// RECURRENCE EXPANSION
// =============================================================================

// Expand materialises a recurrence rule into concrete job dates.
//
// The sequence starts at start (inclusive) and stops once the next date
// would fall after end. RecurrenceNone yields just start. start after end
// yields an empty sequence; callers reject that case before expanding.
//
// Monthly steps use calendar-add overflow from the previous date, the same
// as time.AddDate: 2024-01-31 -> 2024-03-02 -> 2024-04-02.
func Expand(start, end time.Time, kind Recurrence) []time.Time {
	if !kind.IsRecurring() {
		return []time.Time{start}
	}
	if start.After(end) {
		return []time.Time{}
	}

	var dates []time.Time
	for current := start; !current.After(end); current = step(current, kind) {
		dates = append(dates, current)
	}
	return dates
}

// SeriesLength counts the dates Expand would produce, stopping early once
// the count exceeds limit (limit <= 0 means no limit).
func SeriesLength(start, end time.Time, kind Recurrence, limit int) int {
	if !kind.IsRecurring() {
		return 1
	}
	n := 0
	for current := start; !current.After(end); current = step(current, kind) {
		n++
		if limit > 0 && n > limit {
			break
		}
	}
	return n
}

func step(t time.Time, kind Recurrence) time.Time {
	switch kind {
	case RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case RecurrenceBiweekly:
		return t.AddDate(0, 0, 14)
	case RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	default:
		// Unknown kinds never loop forever.
		return t.AddDate(100, 0, 0)
	}
}
