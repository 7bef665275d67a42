package task

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeZone is used when neither the record nor the config names a zone.
const DefaultTimeZone = "America/New_York"

// MinuteLayout is the layout of a minute-truncated start used for matching.
const MinuteLayout = "2006-01-02T15:04"

// Record is a task the user wants on the calendar.
type Record struct {
	Title       string
	Start       time.Time
	End         time.Time // zero when absent
	Description string
	TimeZone    string
}

// Key identifies a task for deduplication against remote events.
type Key struct {
	Title  string
	Minute string
}

func (k Key) String() string {
	return k.Title + " @ " + k.Minute
}

// Valid reports whether the record has everything needed to create an event.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && !r.Start.IsZero() && !r.End.IsZero()
}

// Key returns the deduplication key of the record.
func (r Record) Key() Key {
	return Key{Title: r.Title, Minute: r.Start.Format(MinuteLayout)}
}

// Duration is End-Start, or zero when End is absent or not after Start.
func (r Record) Duration() time.Duration {
	if r.End.IsZero() || !r.End.After(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Zone returns the record's time zone name, falling back to fallback and then
// DefaultTimeZone.
func (r Record) Zone(fallback string) string {
	if r.TimeZone != "" {
		return r.TimeZone
	}
	if fallback != "" {
		return fallback
	}
	return DefaultTimeZone
}

// Date returns the calendar date of the start as YYYY-MM-DD.
func (r Record) Date() string {
	return r.Start.Format("2006-01-02")
}

// Clock returns the time of day of the start as HH:MM.
func (r Record) Clock() string {
	return r.Start.Format("15:04")
}

// NewKey builds a key from a title and an ISO-8601 start string.
func NewKey(title, start string) (Key, error) {
	minute, err := TruncateToMinute(start)
	if err != nil {
		return Key{}, err
	}
	return Key{Title: title, Minute: minute}, nil
}

var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// TruncateToMinute reduces an ISO-8601 date-time to its wall clock minute.
// The UTC offset, seconds and fractions are dropped without conversion, so
// "2025-04-20T09:00:00-04:00" and "2025-04-20T09:00" yield the same value.
func TruncateToMinute(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(MinuteLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date-time %q", s)
}

// ParseStart parses an ISO-8601 date-time. Values without an offset are read
// in loc.
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range startLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", s)
}
