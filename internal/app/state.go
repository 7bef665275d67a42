// Package app holds the task list state and the operations the CLI drives.
package app

import (
	"fmt"
	"sort"

	"github.com/drewfead/tasksched/internal/task"
	"github.com/google/uuid"
)

// Entry is a task in the local list.
type Entry struct {
	ID     uuid.UUID
	Record task.Record
	Done   bool
}

// State is the ordered task list. Entries are kept sorted by date, time of
// day and title, which is also the order Render numbers them in.
type State struct {
	entries []Entry
}

// Len returns the number of entries.
func (s *State) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in display order.
func (s *State) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Records returns the records of all entries in display order.
func (s *State) Records() []task.Record {
	out := make([]task.Record, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Record)
	}
	return out
}

// Add appends rec under a new id.
func (s *State) Add(rec task.Record) Entry {
	e := Entry{ID: uuid.New(), Record: rec}
	s.entries = append(s.entries, e)
	s.sort()
	return e
}

// Replace swaps in records. Entries whose key survives keep their id and
// done flag.
func (s *State) Replace(records []task.Record) {
	previous := make(map[task.Key]Entry, len(s.entries))
	for _, e := range s.entries {
		if _, seen := previous[e.Record.Key()]; !seen {
			previous[e.Record.Key()] = e
		}
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{ID: uuid.New(), Record: rec}
		if old, ok := previous[rec.Key()]; ok {
			e.ID, e.Done = old.ID, old.Done
			delete(previous, rec.Key())
		}
		entries = append(entries, e)
	}
	s.entries = entries
	s.sort()
}

// MarkDone flags the entries with the given ids and returns how many matched.
func (s *State) MarkDone(ids ...uuid.UUID) int {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for i := range s.entries {
		if _, ok := want[s.entries[i].ID]; ok {
			s.entries[i].Done = true
			n++
		}
	}
	return n
}

// MarkDoneByIndex flags entries by their 1-based display position. Nothing is
// marked if any index is out of range.
func (s *State) MarkDoneByIndex(indexes ...int) error {
	for _, n := range indexes {
		if n < 1 || n > len(s.entries) {
			return fmt.Errorf("no task numbered %d (have %d)", n, len(s.entries))
		}
	}
	for _, n := range indexes {
		s.entries[n-1].Done = true
	}
	return nil
}

// Completed returns the entries flagged done.
func (s *State) Completed() []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Done {
			out = append(out, e)
		}
	}
	return out
}

// Remove drops the entry with id.
func (s *State) Remove(id uuid.UUID) bool {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Equal reports whether records describe the same tasks as the state, in
// display order, comparing key and duration.
func (s *State) Equal(records []task.Record) bool {
	if len(records) != len(s.entries) {
		return false
	}
	sorted := make([]task.Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)
	for i, rec := range sorted {
		cur := s.entries[i].Record
		if cur.Key() != rec.Key() || cur.Duration() != rec.Duration() {
			return false
		}
	}
	return true
}

func (s *State) sort() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return lessRecord(s.entries[i].Record, s.entries[j].Record)
	})
}

func sortRecords(records []task.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return lessRecord(records[i], records[j])
	})
}

func lessRecord(a, b task.Record) bool {
	if a.Date() != b.Date() {
		return a.Date() < b.Date()
	}
	if a.Clock() != b.Clock() {
		return a.Clock() < b.Clock()
	}
	return a.Title < b.Title
}
