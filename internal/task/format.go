package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders a duration the way the task list shows it:
// "1 hour", "0.5 hours", "2 hours". Zero renders as "".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	hours := d.Hours()
	if hours == 1 {
		return "1 hour"
	}
	return strconv.FormatFloat(hours, 'g', -1, 64) + " hours"
}

// ParseDurationText is the inverse of FormatDuration. Surrounding whitespace
// (older files stored a trailing tab) is ignored.
func ParseDurationText(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	num := strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "hours"), "hour"))
	if num == s {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return ParseHours(num)
}

// FormatClock renders a time of day as "2:05 PM".
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatDateHeading renders a date as "2/2/25".
func FormatDateHeading(t time.Time) string {
	return t.Format("1/2/06")
}
