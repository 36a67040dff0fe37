package transcript

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dateSep = regexp.MustCompile(`[/.\-]`)

// parseTimestamp resolves an export's DATE and TIME fields. Exports do not say
// whether they are day-first or month-first, so month-first is tried before
// day-first and the first valid reading wins. Dates where both fields are <= 12
// are therefore always read month-first.
func parseTimestamp(date, clock, meridiem string, loc *time.Location) (time.Time, bool) {
	y, m, d, ok := parseDate(date)
	if !ok {
		return time.Time{}, false
	}
	h, mi, s, ok := parseClock(clock, meridiem)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, h, mi, s, 0, loc), true
}

func parseDate(raw string) (year, month, day int, ok bool) {
	parts := dateSep.Split(strings.TrimSpace(raw), -1)
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}

	if len(parts[0]) == 4 {
		if validDate(nums[0], nums[1], nums[2]) {
			return nums[0], nums[1], nums[2], true
		}
		return 0, 0, 0, false
	}

	y, ok := expandYear(parts[2])
	if !ok {
		return 0, 0, 0, false
	}
	if validDate(y, nums[0], nums[1]) {
		return y, nums[0], nums[1], true
	}
	if validDate(y, nums[1], nums[0]) {
		return y, nums[1], nums[0], true
	}
	return 0, 0, 0, false
}

func expandYear(s string) (int, bool) {
	switch len(s) {
	case 2:
		s = "20" + s
	case 4:
	default:
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	// Day 0 of the following month is the last day of m.
	last := time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return d <= last
}

func parseClock(raw, meridiem string) (hour, minute, second int, ok bool) {
	parts := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool { return r == ':' || r == '.' })
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	hour, minute, second = vals[0], vals[1], vals[2]
	if minute > 59 || second > 59 {
		return 0, 0, 0, false
	}

	switch normalizeMeridiem(meridiem) {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, 0, false
		}
		if hour < 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, 0, false
		}
	}
	return hour, minute, second, true
}

func normalizeMeridiem(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "", " ", "").Replace(s)
	return s
}
