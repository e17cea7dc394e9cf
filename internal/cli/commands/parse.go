package commands

import (
	"github.com/denismitr/kire"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

var ErrBadInput = errors.New("bad input")

// ParseClock reads "7:05", "07:05" or "0705".
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	h, m, found := strings.Cut(s, ":")
	if !found {
		if len(s) != 4 {
			return 0, 0, errors.Wrapf(ErrBadInput, "time %q, expected HH:MM", s)
		}
		h, m = s[:2], s[2:]
	}

	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, errors.Wrapf(ErrBadInput, "hour in %q", s)
	}

	minute, err = strconv.Atoi(m)
	if err != nil || len(m) != 2 || minute < 0 || minute > 59 {
		return 0, 0, errors.Wrapf(ErrBadInput, "minute in %q", s)
	}

	return hour, minute, nil
}

var dayAliases = map[string][]int{
	"daily":    {0, 1, 2, 3, 4, 5, 6},
	"weekdays": {1, 2, 3, 4, 5},
	"weekends": {0, 6},
}

// ParseDays reads a comma separated list of day names ("mon", "Tuesday"),
// numbers (0 = Sunday), ranges ("mon-fri") and the aliases daily, weekdays
// and weekends.
func ParseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		if alias, ok := dayAliases[part]; ok {
			days = append(days, alias...)
			continue
		}

		if from, to, isRange := strings.Cut(part, "-"); isRange {
			start, err := parseDay(from)
			if err != nil {
				return nil, err
			}
			end, err := parseDay(to)
			if err != nil {
				return nil, err
			}
			for d := start; ; d = (d + 1) % 7 {
				days = append(days, d)
				if d == end {
					break
				}
			}
			continue
		}

		d, err := parseDay(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}

	if len(days) == 0 {
		return nil, errors.Wrapf(ErrBadInput, "no days in %q", s)
	}

	return kire.NormalizeWeekdays(days), nil
}

var dayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// parseDay takes a lower case day number, label or full name.
func parseDay(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, errors.Wrapf(ErrBadInput, "day %d, expected 0..6", n)
		}
		return n, nil
	}

	for i, label := range kire.WeekdayLabels {
		if s == strings.ToLower(label) || s == dayNames[i] {
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrBadInput, "unknown day %q", s)
}
