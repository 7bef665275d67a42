package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drewfead/tasksched/internal/task"
)

// Reconciler matches desired tasks against the events already on a calendar.
type Reconciler struct {
	source EventSource
	opts   ListOptions
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMaxResults caps the number of events fetched per pass.
func WithMaxResults(n int64) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.opts.MaxResults = n
		}
	}
}

// WithWindow limits the list call to events starting in [from, to].
// Either bound may be zero.
func WithWindow(from, to time.Time) Option {
	return func(r *Reconciler) {
		r.opts.TimeMin = from
		r.opts.TimeMax = to
	}
}

// New creates a Reconciler over source.
func New(source EventSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		source: source,
		opts:   ListOptions{MaxResults: DefaultMaxResults},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events fetches the remote events for one pass.
func (r *Reconciler) Events(ctx context.Context) ([]RemoteEvent, error) {
	events, err := r.source.ListEvents(ctx, r.opts)
	if err != nil {
		return nil, fmt.Errorf("unable to list existing events: %w", err)
	}
	return events, nil
}

// CreateFailure records a create call that returned an error.
type CreateFailure struct {
	Record task.Record
	Err    error
}

// CreateReport summarizes a create pass.
type CreateReport struct {
	Created  []RemoteEvent
	Skipped  []task.Record // already present remotely
	Invalid  int           // missing title, start or end
	Failures []CreateFailure
}

// Err joins the failures of the pass, or returns nil.
func (rep *CreateReport) Err() error {
	if rep == nil || len(rep.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Record.Key(), f.Err))
	}
	return errors.Join(errs...)
}

// CreateMissing creates an event for each desired record whose key is not
// already on the calendar. Records are processed in input order and a failed
// create does not stop the pass; failures are collected in the report. Only a
// failed list call aborts.
func (r *Reconciler) CreateMissing(ctx context.Context, desired []task.Record) (*CreateReport, error) {
	existing, err := r.Events(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[task.Key]struct{}, len(existing))
	for _, e := range existing {
		if k, ok := e.Key(); ok {
			present[k] = struct{}{}
		}
	}

	report := &CreateReport{}
	for _, rec := range desired {
		if !rec.Valid() {
			report.Invalid++
			continue
		}

		key := rec.Key()
		if _, ok := present[key]; ok {
			slog.Info("skipped duplicate", "title", rec.Title, "start", key.Minute)
			report.Skipped = append(report.Skipped, rec)
			continue
		}

		created, err := r.source.CreateEvent(ctx, rec)
		if err != nil {
			slog.Warn("failed to create event", "title", rec.Title, "start", key.Minute, "error", err)
			report.Failures = append(report.Failures, CreateFailure{Record: rec, Err: err})
			continue
		}
		slog.Info("created event", "title", rec.Title, "start", key.Minute, "id", created.ID)
		report.Created = append(report.Created, created)
	}

	return report, nil
}

// DeleteOutcome is the result of a delete request.
type DeleteOutcome int

const (
	OutcomeNotFound DeleteOutcome = iota
	OutcomeDeleted
)

func (o DeleteOutcome) String() string {
	switch o {
	case OutcomeDeleted:
		return "deleted"
	default:
		return "not found"
	}
}

// Delete removes the first remote event matching title and start to the
// minute. When several events share the key only the first one in list order
// is removed. No match is reported as OutcomeNotFound with a nil error.
func (r *Reconciler) Delete(ctx context.Context, title, start string) (DeleteOutcome, error) {
	key, err := task.NewKey(title, start)
	if err != nil {
		return OutcomeNotFound, fmt.Errorf("invalid start for %q: %w", title, err)
	}
	return r.deleteKey(ctx, key)
}

// DeleteRecord is Delete keyed on a record.
func (r *Reconciler) DeleteRecord(ctx context.Context, rec task.Record) (DeleteOutcome, error) {
	return r.deleteKey(ctx, rec.Key())
}

func (r *Reconciler) deleteKey(ctx context.Context, key task.Key) (DeleteOutcome, error) {
	existing, err := r.Events(ctx)
	if err != nil {
		return OutcomeNotFound, err
	}

	for _, e := range existing {
		k, ok := e.Key()
		if !ok || k != key {
			continue
		}
		if err := r.source.DeleteEvent(ctx, e.ID); err != nil {
			return OutcomeNotFound, fmt.Errorf("unable to delete %s: %w", key, err)
		}
		slog.Info("deleted event", "title", key.Title, "start", key.Minute, "id", e.ID)
		return OutcomeDeleted, nil
	}

	slog.Info("no matching event found for deletion", "title", key.Title, "start", key.Minute)
	return OutcomeNotFound, nil
}
