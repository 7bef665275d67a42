package calendar

import (
	"time"

	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"google.golang.org/api/calendar/v3"
)

const wallClockLayout = "2006-01-02T15:04:05"

// MapRecordToEvent converts a task record to a Google Calendar Event.
// Start and end are sent as wall-clock times with an explicit timeZone so the
// calendar interprets them in the record's zone.
func MapRecordToEvent(rec task.Record, defaultZone string) *calendar.Event {
	zone := rec.Zone(defaultZone)

	end := rec.End
	if end.IsZero() {
		end = rec.Start
	}

	return &calendar.Event{
		Summary:     rec.Title,
		Description: rec.Description,
		Start: &calendar.EventDateTime{
			DateTime: rec.Start.Format(wallClockLayout),
			TimeZone: zone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(wallClockLayout),
			TimeZone: zone,
		},
	}
}

// MapEventToRemote reduces a Google Calendar Event to the fields the
// reconciler matches on. All-day events keep an empty Start.
func MapEventToRemote(event *calendar.Event) reconcile.RemoteEvent {
	out := reconcile.RemoteEvent{
		ID:      event.Id,
		Summary: event.Summary,
	}
	if event.Start != nil {
		out.Start = event.Start.DateTime
	}
	if event.End != nil {
		out.End = event.End.DateTime
	}
	return out
}

// MapRemoteToRecord converts a remote event back into a task record, used
// when the task list is refreshed from the calendar. ok is false for events
// without a summary or a dateTime start.
func MapRemoteToRecord(e reconcile.RemoteEvent, loc *time.Location) (task.Record, bool) {
	if e.Summary == "" || e.Start == "" {
		return task.Record{}, false
	}
	start, err := task.ParseStart(e.Start, loc)
	if err != nil {
		return task.Record{}, false
	}

	rec := task.Record{Title: e.Summary, Start: start, End: start}
	if e.End != "" {
		if end, err := task.ParseStart(e.End, loc); err == nil {
			rec.End = end
		}
	}
	// Times keep the offset the calendar reported so the record's key matches
	// the event it came from.
	return rec, true
}
