package kire

import (
	"github.com/denismitr/kire/notification"
	"sort"
	"strings"
)

// Weekdays are numbered 0 (Sunday) through 6 (Saturday).
var WeekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func DefaultWeekdays() []int {
	return []int{0, 1, 2, 3, 4, 5, 6}
}

// NormalizeWeekdays wraps every day into 0..6, drops duplicates and sorts.
func NormalizeWeekdays(days []int) []int {
	seen := make(map[int]struct{}, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		n := notification.NormalizeWeekday(d)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	sort.Ints(out)
	return out
}

// FormatWeekdays renders days as labels with consecutive runs collapsed:
// [1 2 3 4 5 0] becomes "Sun, Mon - Fri".
func FormatWeekdays(days []int) string {
	normalized := NormalizeWeekdays(days)
	if len(normalized) == 0 {
		return ""
	}

	segments := make([]string, 0, len(normalized))
	start, end := normalized[0], normalized[0]
	flush := func() {
		if start == end {
			segments = append(segments, WeekdayLabels[start])
			return
		}
		segments = append(segments, WeekdayLabels[start]+" - "+WeekdayLabels[end])
	}

	for _, d := range normalized[1:] {
		if d == end+1 {
			end = d
			continue
		}
		flush()
		start, end = d, d
	}
	flush()

	return strings.Join(segments, ", ")
}
