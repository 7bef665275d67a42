package reconcile

import (
	"context"
	"time"

	"github.com/drewfead/tasksched/internal/task"
)

// DefaultMaxResults caps the single list call each pass makes.
const DefaultMaxResults = 250

// RemoteEvent is the subset of a calendar event the reconciler looks at.
type RemoteEvent struct {
	ID      string
	Summary string
	Start   string // ISO-8601 dateTime; empty for all-day events
	End     string
}

// Key returns the event's deduplication key. ok is false for events without a
// summary or a parseable dateTime start.
func (e RemoteEvent) Key() (task.Key, bool) {
	if e.Summary == "" || e.Start == "" {
		return task.Key{}, false
	}
	k, err := task.NewKey(e.Summary, e.Start)
	if err != nil {
		return task.Key{}, false
	}
	return k, true
}

// ListOptions scopes a list call.
type ListOptions struct {
	MaxResults int64
	TimeMin    time.Time // zero means unbounded
	TimeMax    time.Time
}

// EventSource is the calendar capability the reconciler consumes.
type EventSource interface {
	ListEvents(ctx context.Context, opts ListOptions) ([]RemoteEvent, error)
	CreateEvent(ctx context.Context, rec task.Record) (RemoteEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
