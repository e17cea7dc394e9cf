package notification

import "time"

// NextOccurrence is today at hour:minute in now's location, or the same
// wall-clock time tomorrow when that moment is not after now.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// PlatformWeekday maps 0 (Sunday) .. 6 (Saturday) onto 1 .. 7. Out of
// range days wrap around the week.
func PlatformWeekday(day int) int {
	return NormalizeWeekday(day) + 1
}

func NormalizeWeekday(day int) int {
	return ((day % 7) + 7) % 7
}

// NextWeekly finds the first instant strictly after now that falls on the
// platform weekday at hour:minute.
func NextWeekly(now time.Time, weekday, hour, minute int) time.Time {
	want := time.Weekday(NormalizeWeekday(weekday - 1))
	for i := 0; i <= 7; i++ {
		candidate := time.Date(now.Year(), now.Month(), now.Day()+i, hour, minute, 0, 0, now.Location())
		if candidate.Weekday() == want && candidate.After(now) {
			return candidate
		}
	}

	// unreachable: eight consecutive days always contain the weekday after now
	return time.Date(now.Year(), now.Month(), now.Day()+7, hour, minute, 0, 0, now.Location())
}
