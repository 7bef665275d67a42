package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drewfead/tasksched/internal/calendar"
	"github.com/drewfead/tasksched/internal/mirror"
	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"github.com/google/uuid"
)

// Controller owns the task list and runs every operation against it under a
// single lock.
type Controller struct {
	mu         sync.Mutex
	state      State
	reconciler *reconcile.Reconciler
	mirror     *mirror.Mirror
	loc        *time.Location

	// Now supplies the current time; it defaults to time.Now.
	Now func() time.Time
}

// NewController creates a Controller. New tasks are built in loc.
func NewController(reconciler *reconcile.Reconciler, m *mirror.Mirror, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		reconciler: reconciler,
		mirror:     m,
		loc:        loc,
		Now:        time.Now,
	}
}

// Entries returns a snapshot of the task list.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Entries()
}

// Load replaces the state with the local task file. A malformed file is
// reported as a warning and leaves the list empty.
func (c *Controller) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.mirror.Load()
	if errors.Is(err, mirror.ErrMalformed) {
		slog.Warn("ignoring unreadable task file", "path", c.mirror.Path(), "error", err)
		records = nil
	} else if err != nil {
		return err
	}
	c.state.Replace(records)
	return nil
}

// Submit adds the task described by form, saves the task file and creates
// the calendar event unless one with the same title and start exists. The
// entry is kept locally even when the calendar call fails.
func (c *Controller) Submit(ctx context.Context, form task.Form) (Entry, *reconcile.CreateReport, error) {
	rec, err := form.Build(c.loc, c.Now())
	if err != nil {
		return Entry{}, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.state.Add(rec)
	if err := c.mirror.Save(c.state.Records()); err != nil {
		return entry, nil, err
	}

	report, err := c.reconciler.CreateMissing(ctx, []task.Record{rec})
	if err != nil {
		return entry, nil, err
	}
	return entry, report, report.Err()
}

// MarkDone flags entries by id.
func (c *Controller) MarkDone(ids ...uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.MarkDone(ids...)
}

// MarkDoneByIndex flags entries by their 1-based position in Render output.
func (c *Controller) MarkDoneByIndex(indexes ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.MarkDoneByIndex(indexes...)
}

// ClearFailure is a completed task whose calendar delete failed.
type ClearFailure struct {
	Record task.Record
	Err    error
}

// ClearReport summarizes ClearCompleted.
type ClearReport struct {
	Deleted  []task.Record
	NotFound []task.Record
	Failures []ClearFailure
}

// Err joins the delete failures, or returns nil.
func (rep *ClearReport) Err() error {
	if rep == nil || len(rep.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Record.Key(), f.Err))
	}
	return errors.Join(errs...)
}

// ClearCompleted deletes the calendar event of every done entry and drops
// the entries locally whatever the remote outcome. The task file is saved
// afterwards.
func (c *Controller) ClearCompleted(ctx context.Context) (*ClearReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &ClearReport{}
	for _, e := range c.state.Completed() {
		outcome, err := c.reconciler.DeleteRecord(ctx, e.Record)
		switch {
		case err != nil:
			slog.Warn("could not delete task", "title", e.Record.Title, "error", err)
			report.Failures = append(report.Failures, ClearFailure{Record: e.Record, Err: err})
		case outcome == reconcile.OutcomeDeleted:
			report.Deleted = append(report.Deleted, e.Record)
		default:
			report.NotFound = append(report.NotFound, e.Record)
		}
		c.state.Remove(e.ID)
	}

	if err := c.mirror.Save(c.state.Records()); err != nil {
		return report, err
	}
	return report, nil
}

// Refresh replaces the list with the timed events on the calendar and
// reports whether anything changed.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	records, err := c.remoteRecords(ctx)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Equal(records) {
		return false, nil
	}
	c.state.Replace(records)
	slog.Debug("task list refreshed", "count", len(records))
	return true, nil
}

// Backup writes the calendar's timed events to the task file and returns
// how many were written.
func (c *Controller) Backup(ctx context.Context) (int, error) {
	records, err := c.remoteRecords(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.mirror.Save(records); err != nil {
		return 0, err
	}
	c.state.Replace(records)
	slog.Info("backed up calendar", "path", c.mirror.Path(), "count", len(records))
	return len(records), nil
}

// Sync creates calendar events for every task in the task file that is not
// already on the calendar. A malformed file is reported as a warning and
// syncs nothing.
func (c *Controller) Sync(ctx context.Context) (*reconcile.CreateReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.mirror.Load()
	if errors.Is(err, mirror.ErrMalformed) {
		slog.Warn("ignoring unreadable task file", "path", c.mirror.Path(), "error", err)
		c.state.Replace(nil)
		return &reconcile.CreateReport{}, nil
	} else if err != nil {
		return nil, err
	}
	c.state.Replace(records)

	report, err := c.reconciler.CreateMissing(ctx, records)
	if err != nil {
		return nil, err
	}
	return report, report.Err()
}

func (c *Controller) remoteRecords(ctx context.Context) ([]task.Record, error) {
	events, err := c.reconciler.Events(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]task.Record, 0, len(events))
	for _, e := range events {
		if rec, ok := calendar.MapRemoteToRecord(e, c.loc); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Render writes the list grouped under date headings, numbering entries in
// the order MarkDoneByIndex expects.
func (c *Controller) Render(w io.Writer) error {
	c.mu.Lock()
	entries := c.state.Entries()
	c.mu.Unlock()

	return RenderEntries(w, entries)
}

// RenderEntries writes entries in the list layout used by Render.
func RenderEntries(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Add a task and it will be shown here.")
		return err
	}

	var b strings.Builder
	heading := ""
	for i, e := range entries {
		if h := task.FormatDateHeading(e.Record.Start); h != heading {
			heading = h
			fmt.Fprintf(&b, "%s\n", h)
		}

		check := " "
		if e.Done {
			check = "x"
		}
		parts := []string{}
		if e.Record.Clock() != "00:00" || e.Record.Duration() > 0 {
			parts = append(parts, task.FormatClock(e.Record.Start))
		}
		if d := task.FormatDuration(e.Record.Duration()); d != "" {
			parts = append(parts, d)
		}
		parts = append(parts, e.Record.Title)
		fmt.Fprintf(&b, "  %d. [%s] %s\n", i+1, check, strings.Join(parts, " | "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
