// Package mirror persists the local task list as a date-keyed JSON file.
package mirror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drewfead/tasksched/internal/task"
)

// ErrMalformed is wrapped by Load when the file is not valid JSON.
var ErrMalformed = errors.New("malformed task file")

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Entry is one task as stored on disk.
type Entry struct {
	Time        string `json:"time"`
	Duration    string `json:"duration"`
	Task        string `json:"task"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
}

// File is the on-disk layout: entries grouped under their YYYY-MM-DD date.
type File map[string][]Entry

// Mirror reads and writes the task file at a fixed path.
type Mirror struct {
	path string
	loc  *time.Location
}

// New returns a Mirror for path. Entries without a stored zone are read in loc.
func New(path string, loc *time.Location) *Mirror {
	if loc == nil {
		loc = time.Local
	}
	return &Mirror{path: path, loc: loc}
}

// Path returns the file the mirror writes to.
func (m *Mirror) Path() string {
	return m.path
}

// Load reads the task file. A missing or blank file is an empty list. A file
// that is not valid JSON yields an empty list and an error wrapping
// ErrMalformed. Entries that cannot be interpreted are skipped with a warning.
func (m *Mirror) Load() ([]task.Record, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read task file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrMalformed, m.path, err)
	}
	return m.Decode(file), nil
}

// Decode converts a File into records ordered by start, then title.
func (m *Mirror) Decode(file File) []task.Record {
	var records []task.Record
	for date, entries := range file {
		for _, e := range entries {
			rec, err := m.decodeEntry(date, e)
			if err != nil {
				slog.Warn("skipping task entry", "date", date, "task", e.Task, "error", err)
				continue
			}
			records = append(records, rec)
		}
	}
	sortRecords(records)
	return records
}

func (m *Mirror) decodeEntry(date string, e Entry) (task.Record, error) {
	title := strings.TrimSpace(e.Task)
	if title == "" {
		return task.Record{}, task.ErrMissingTask
	}

	loc := m.loc
	if e.TimeZone != "" {
		if l, err := time.LoadLocation(e.TimeZone); err == nil {
			loc = l
		}
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return task.Record{}, fmt.Errorf("%w: %q", task.ErrInvalidDate, date)
	}
	clock, err := time.Parse(clockLayout, strings.TrimSpace(e.Time))
	if err != nil {
		return task.Record{}, fmt.Errorf("%w: %q", task.ErrInvalidTime, e.Time)
	}
	dur, err := task.ParseDurationText(e.Duration)
	if err != nil {
		return task.Record{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return task.Record{
		Title:       title,
		Start:       start,
		End:         start.Add(dur),
		Description: e.Description,
		TimeZone:    e.TimeZone,
	}, nil
}

// Encode groups records by date, each date sorted by time of day then title.
// Records without a title or start are dropped.
func Encode(records []task.Record) File {
	sorted := make([]task.Record, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" || rec.Start.IsZero() {
			continue
		}
		sorted = append(sorted, rec)
	}
	sortRecords(sorted)

	file := make(File)
	for _, rec := range sorted {
		file[rec.Date()] = append(file[rec.Date()], Entry{
			Time:        rec.Clock(),
			Duration:    task.FormatDuration(rec.Duration()),
			Task:        rec.Title,
			Description: rec.Description,
			TimeZone:    rec.TimeZone,
		})
	}
	return file
}

// Save overwrites the task file with records.
func (m *Mirror) Save(records []task.Record) error {
	data, err := json.MarshalIndent(Encode(records), "", "  ")
	if err != nil {
		return fmt.Errorf("unable to encode tasks: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("unable to create task directory: %w", err)
	}
	if err := os.WriteFile(m.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("unable to write task file: %w", err)
	}
	slog.Debug("saved tasks", "path", m.path, "count", len(records))
	return nil
}

// sortRecords orders by date, then wall clock time of day, then title.
func sortRecords(records []task.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Date() != b.Date() {
			return a.Date() < b.Date()
		}
		if a.Clock() != b.Clock() {
			return a.Clock() < b.Clock()
		}
		return a.Title < b.Title
	})
}
