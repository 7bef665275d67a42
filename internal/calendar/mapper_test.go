package calendar

import (
	"testing"
	"time"

	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"google.golang.org/api/calendar/v3"
)

func TestMapRecordToEvent(t *testing.T) {
	start := time.Date(2025, 4, 20, 14, 0, 0, 0, time.UTC)
	rec := task.Record{
		Title:       "Test Event to Delete",
		Description: "<b>HTML Description</b>",
		Start:       start,
		End:         start.Add(time.Hour),
	}

	event := MapRecordToEvent(rec, "America/New_York")

	if event.Summary != rec.Title {
		t.Errorf("expected summary %q, got %q", rec.Title, event.Summary)
	}
	if event.Description != rec.Description {
		t.Errorf("expected description %q, got %q", rec.Description, event.Description)
	}
	if event.Start.DateTime != "2025-04-20T14:00:00" {
		t.Errorf("unexpected start %q", event.Start.DateTime)
	}
	if event.End.DateTime != "2025-04-20T15:00:00" {
		t.Errorf("unexpected end %q", event.End.DateTime)
	}
	if event.Start.TimeZone != "America/New_York" || event.End.TimeZone != "America/New_York" {
		t.Errorf("expected default zone on both ends, got %q/%q", event.Start.TimeZone, event.End.TimeZone)
	}
}

func TestMapRecordToEvent_ZonePrecedence(t *testing.T) {
	start := time.Date(2025, 4, 20, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		recordZone  string
		defaultZone string
		want        string
	}{
		{name: "record zone wins", recordZone: "Europe/Paris", defaultZone: "America/Chicago", want: "Europe/Paris"},
		{name: "configured default", recordZone: "", defaultZone: "America/Chicago", want: "America/Chicago"},
		{name: "built-in default", recordZone: "", defaultZone: "", want: task.DefaultTimeZone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := MapRecordToEvent(task.Record{Title: "x", Start: start, End: start, TimeZone: tt.recordZone}, tt.defaultZone)
			if event.Start.TimeZone != tt.want {
				t.Errorf("expected zone %q, got %q", tt.want, event.Start.TimeZone)
			}
		})
	}
}

func TestMapRecordToEvent_MissingEndUsesStart(t *testing.T) {
	start := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	event := MapRecordToEvent(task.Record{Title: "Errands", Start: start}, "")
	if event.End.DateTime != event.Start.DateTime {
		t.Errorf("expected end %q to equal start %q", event.End.DateTime, event.Start.DateTime)
	}
}

func TestMapEventToRemote(t *testing.T) {
	tests := []struct {
		name      string
		event     *calendar.Event
		wantStart string
		wantEnd   string
	}{
		{
			name: "timed",
			event: &calendar.Event{
				Id:      "event1",
				Summary: "Meeting",
				Start:   &calendar.EventDateTime{DateTime: "2025-04-20T09:00:00-04:00"},
				End:     &calendar.EventDateTime{DateTime: "2025-04-20T10:00:00-04:00"},
			},
			wantStart: "2025-04-20T09:00:00-04:00",
			wantEnd:   "2025-04-20T10:00:00-04:00",
		},
		{
			name: "all day",
			event: &calendar.Event{
				Id:      "event2",
				Summary: "Holiday",
				Start:   &calendar.EventDateTime{Date: "2025-04-20"},
				End:     &calendar.EventDateTime{Date: "2025-04-21"},
			},
		},
		{
			name:  "no times",
			event: &calendar.Event{Id: "event3", Summary: "Broken"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapEventToRemote(tt.event)
			if got.ID != tt.event.Id || got.Summary != tt.event.Summary {
				t.Errorf("unexpected identity %+v", got)
			}
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("got start/end %q/%q, want %q/%q", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestMapRemoteToRecord(t *testing.T) {
	rec, ok := MapRemoteToRecord(reconcile.RemoteEvent{
		ID:      "event1",
		Summary: "Test Event",
		Start:   "2025-04-20T10:00:00",
		End:     "2025-04-20T11:00:00",
	}, time.UTC)
	if !ok {
		t.Fatal("expected event to convert")
	}
	if rec.Title != "Test Event" {
		t.Errorf("unexpected title %q", rec.Title)
	}
	if rec.Duration() != time.Hour {
		t.Errorf("expected 1h duration, got %v", rec.Duration())
	}
	if got := rec.Start.Format(task.MinuteLayout); got != "2025-04-20T10:00" {
		t.Errorf("unexpected start %s", got)
	}

	withOffset, ok := MapRemoteToRecord(reconcile.RemoteEvent{Summary: "Meeting", Start: "2025-04-20T09:00:00-04:00"}, time.UTC)
	if !ok {
		t.Fatal("expected event to convert")
	}
	remoteKey, _ := reconcile.RemoteEvent{Summary: "Meeting", Start: "2025-04-20T09:00:00-04:00"}.Key()
	if withOffset.Key() != remoteKey {
		t.Errorf("record key %v should match remote key %v", withOffset.Key(), remoteKey)
	}

	for _, e := range []reconcile.RemoteEvent{
		{Summary: "", Start: "2025-04-20T10:00:00"},
		{Summary: "Missing start"},
		{Summary: "Bad start", Start: "noon"},
	} {
		if _, ok := MapRemoteToRecord(e, time.UTC); ok {
			t.Errorf("expected %+v to be skipped", e)
		}
	}
}
