package task

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrMissingTask     = errors.New("task name cannot be empty")
)

// MaxHours bounds the duration a single task may span.
const MaxHours = 24

// Form holds the raw values a user enters for a new task.
type Form struct {
	Month       string
	Day         string
	Year        string // empty means the current year
	Hour        string // 1-12, empty for an untimed task
	Minute      string
	Period      string // AM or PM
	Duration    string // hours, e.g. "1.5"
	Task        string
	Description string
}

// Build converts the form into a Record in loc. now supplies the default year.
func (f Form) Build(loc *time.Location, now time.Time) (Record, error) {
	if loc == nil {
		loc = time.Local
	}
	date, err := ParseDate(f.Month, f.Day, f.Year, now)
	if err != nil {
		return Record{}, err
	}
	title := strings.TrimSpace(f.Task)
	if title == "" {
		return Record{}, ErrMissingTask
	}

	timed := strings.TrimSpace(f.Hour) != "" && strings.TrimSpace(f.Minute) != ""
	hour, minute := 0, 0
	if timed {
		hour, minute, err = ParseClock(f.Hour, f.Minute, f.Period)
		if err != nil {
			return Record{}, err
		}
	}

	var dur time.Duration
	if strings.TrimSpace(f.Duration) != "" {
		dur, err = ParseHours(f.Duration)
		if err != nil {
			return Record{}, err
		}
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc)
	end := start
	if timed && dur > 0 {
		end = start.Add(dur)
	}

	rec := Record{
		Title:       title,
		Start:       start,
		End:         end,
		Description: strings.TrimSpace(f.Description),
	}
	// "Local" is not an IANA name the calendar accepts.
	if loc != time.Local {
		rec.TimeZone = loc.String()
	}
	return rec, nil
}

// ParseDate validates a month/day/year triple. Dates that do not exist, such
// as February 30, are rejected.
func ParseDate(month, day, year string, now time.Time) (time.Time, error) {
	y := now.Year()
	if s := strings.TrimSpace(year); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return time.Time{}, fmt.Errorf("%w: year %q", ErrInvalidDate, year)
		}
		y = v
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("%w: month %q", ErrInvalidDate, month)
	}
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("%w: day %q", ErrInvalidDate, day)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, fmt.Errorf("%w: %d/%d/%d", ErrInvalidDate, m, d, y)
	}
	return t, nil
}

// ParseClock converts a 12-hour clock reading to 24-hour hour and minute.
func ParseClock(hour, minute, period string) (int, int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(hour))
	if err != nil || h < 1 || h > 12 {
		return 0, 0, fmt.Errorf("%w: hour %q", ErrInvalidTime, hour)
	}
	m, err := strconv.Atoi(strings.TrimSpace(minute))
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: minute %q", ErrInvalidTime, minute)
	}

	switch strings.ToUpper(strings.TrimSpace(period)) {
	case "", "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h != 12 {
			h += 12
		}
	default:
		return 0, 0, fmt.Errorf("%w: period %q", ErrInvalidTime, period)
	}
	return h, m, nil
}

// ParseHours parses a duration given in hours, e.g. "0.5" or "2", up to
// MaxHours.
func ParseHours(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > MaxHours {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return time.Duration(math.Round(v*60)) * time.Minute, nil
}
