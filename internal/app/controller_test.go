package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewfead/tasksched/internal/calendar"
	"github.com/drewfead/tasksched/internal/mirror"
	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"github.com/drewfead/tasksched/pkg/googlecaltest"
	gcalendar "google.golang.org/api/calendar/v3"
)

type fixture struct {
	ctrl   *Controller
	server *googlecaltest.Server
	mirror *mirror.Mirror
	loc    *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}

	server := googlecaltest.NewServer()
	t.Cleanup(server.Close)

	client, err := calendar.NewClient(context.Background(), &http.Client{}, "primary", server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	m := mirror.New(filepath.Join(t.TempDir(), "task_data.json"), loc)
	ctrl := NewController(reconcile.New(client), m, loc)
	ctrl.Now = func() time.Time { return time.Date(2025, 1, 15, 8, 0, 0, 0, loc) }

	return &fixture{ctrl: ctrl, server: server, mirror: m, loc: loc}
}

func meetingForm() task.Form {
	return task.Form{Month: "4", Day: "20", Hour: "9", Minute: "00", Period: "AM", Duration: "1", Task: "Meeting"}
}

func TestController_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, report, err := f.ctrl.Submit(ctx, meetingForm())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if entry.Record.Key().Minute != "2025-04-20T09:00" {
		t.Errorf("unexpected start %s", entry.Record.Key().Minute)
	}
	if len(report.Created) != 1 {
		t.Fatalf("expected 1 created, got %d", len(report.Created))
	}

	events := f.server.GetEvents("primary")
	if len(events) != 1 || events[0].Summary != "Meeting" || events[0].End.DateTime != "2025-04-20T10:00:00" {
		t.Fatalf("unexpected remote events %+v", events)
	}

	saved, err := f.mirror.Load()
	if err != nil {
		t.Fatalf("failed to load mirror: %v", err)
	}
	if len(saved) != 1 || saved[0].Title != "Meeting" {
		t.Errorf("expected mirror to hold the new task, got %+v", saved)
	}

	// The same task again is kept locally but not duplicated remotely.
	_, report, err = f.ctrl.Submit(ctx, meetingForm())
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if len(report.Created) != 0 || len(report.Skipped) != 1 {
		t.Errorf("expected skip on resubmit, got created=%d skipped=%d", len(report.Created), len(report.Skipped))
	}
	if got := f.server.Calls(googlecaltest.MethodInsert); got != 1 {
		t.Errorf("expected 1 insert, got %d", got)
	}
	if got := len(f.ctrl.Entries()); got != 2 {
		t.Errorf("expected 2 local entries, got %d", got)
	}
}

func TestController_SubmitInvalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		form task.Form
		want error
	}{
		{name: "impossible date", form: task.Form{Month: "2", Day: "30", Task: "x"}, want: task.ErrInvalidDate},
		{name: "bad hour", form: task.Form{Month: "2", Day: "1", Hour: "13", Minute: "60", Task: "x"}, want: task.ErrInvalidTime},
		{name: "no task", form: task.Form{Month: "2", Day: "1", Task: "  "}, want: task.ErrMissingTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.ctrl.Submit(context.Background(), tt.form)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if len(f.ctrl.Entries()) != 0 || f.server.Calls(googlecaltest.MethodList) != 0 {
		t.Error("invalid forms must not touch state or the calendar")
	}
}

func TestController_SubmitKeepsEntryWhenCalendarFails(t *testing.T) {
	f := newFixture(t)
	f.server.FailInsertsOf("Meeting", http.StatusForbidden)

	_, report, err := f.ctrl.Submit(context.Background(), meetingForm())
	if err == nil {
		t.Fatal("expected create failure to be reported")
	}
	if report == nil || len(report.Failures) != 1 {
		t.Errorf("expected one failure in report, got %+v", report)
	}
	if len(f.ctrl.Entries()) != 1 {
		t.Error("expected entry to be kept locally")
	}
}

func TestController_ClearCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.ctrl.Submit(ctx, meetingForm()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	lunch := task.Form{Month: "4", Day: "20", Hour: "12", Minute: "00", Period: "PM", Duration: "1", Task: "Lunch"}
	if _, _, err := f.ctrl.Submit(ctx, lunch); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := f.ctrl.MarkDoneByIndex(3); err == nil {
		t.Error("expected out-of-range index to fail")
	}
	if err := f.ctrl.MarkDoneByIndex(1); err != nil {
		t.Fatalf("MarkDoneByIndex failed: %v", err)
	}

	report, err := f.ctrl.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if len(report.Deleted) != 1 || report.Deleted[0].Title != "Meeting" {
		t.Errorf("expected Meeting deleted, got %+v", report.Deleted)
	}

	remote := f.server.GetEvents("primary")
	if len(remote) != 1 || remote[0].Summary != "Lunch" {
		t.Errorf("expected only Lunch remotely, got %d events", len(remote))
	}
	entries := f.ctrl.Entries()
	if len(entries) != 1 || entries[0].Record.Title != "Lunch" {
		t.Errorf("expected only Lunch locally, got %+v", entries)
	}
	saved, _ := f.mirror.Load()
	if len(saved) != 1 {
		t.Errorf("expected mirror to be rewritten, got %d records", len(saved))
	}
}

func TestController_ClearCompletedContinuesOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		form := meetingForm()
		form.Task = name
		if _, _, err := f.ctrl.Submit(ctx, form); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	entries := f.ctrl.Entries()
	if n := f.ctrl.MarkDone(entries[0].ID, entries[1].ID); n != 2 {
		t.Fatalf("expected 2 marked, got %d", n)
	}

	f.server.FailNext(googlecaltest.MethodDelete, http.StatusInternalServerError)
	report, err := f.ctrl.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if len(report.Failures) != 1 || len(report.Deleted) != 1 {
		t.Errorf("expected one failure and one delete, got %d/%d", len(report.Failures), len(report.Deleted))
	}
	if report.Err() == nil {
		t.Error("expected joined error")
	}
	if len(f.ctrl.Entries()) != 0 {
		t.Error("expected completed entries to be removed locally regardless")
	}
}

func TestController_ClearCompletedNotFound(t *testing.T) {
	f := newFixture(t)
	if err := f.mirror.Save([]task.Record{{
		Title: "Local only",
		Start: time.Date(2025, 4, 20, 9, 0, 0, 0, f.loc),
		End:   time.Date(2025, 4, 20, 10, 0, 0, 0, f.loc),
	}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := f.ctrl.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := f.ctrl.MarkDoneByIndex(1); err != nil {
		t.Fatalf("MarkDoneByIndex failed: %v", err)
	}

	report, err := f.ctrl.ClearCompleted(context.Background())
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if len(report.NotFound) != 1 {
		t.Errorf("expected not-found outcome, got %+v", report)
	}
	if f.server.Calls(googlecaltest.MethodDelete) != 0 {
		t.Error("expected no delete calls")
	}
}

func seedRemote(s *googlecaltest.Server) {
	s.AddEvent("primary", &gcalendar.Event{
		Summary: "Meeting",
		Start:   &gcalendar.EventDateTime{DateTime: "2025-04-20T09:00:00-04:00"},
		End:     &gcalendar.EventDateTime{DateTime: "2025-04-20T10:00:00-04:00"},
	})
	s.AddEvent("primary", &gcalendar.Event{
		Summary: "Holiday",
		Start:   &gcalendar.EventDateTime{Date: "2025-04-21"},
		End:     &gcalendar.EventDateTime{Date: "2025-04-22"},
	})
	s.AddEvent("primary", &gcalendar.Event{
		Summary: "Lunch",
		Start:   &gcalendar.EventDateTime{DateTime: "2025-04-20T12:00:00-04:00"},
		End:     &gcalendar.EventDateTime{DateTime: "2025-04-20T12:30:00-04:00"},
	})
}

func TestController_Refresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedRemote(f.server)

	changed, err := f.ctrl.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !changed {
		t.Fatal("expected first refresh to change the list")
	}
	entries := f.ctrl.Entries()
	if len(entries) != 2 || entries[0].Record.Title != "Meeting" || entries[1].Record.Duration() != 30*time.Minute {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := f.ctrl.MarkDoneByIndex(1); err != nil {
		t.Fatalf("MarkDoneByIndex failed: %v", err)
	}
	changed, err = f.ctrl.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if changed {
		t.Error("expected unchanged calendar to report no change")
	}

	f.server.AddEvent("primary", &gcalendar.Event{
		Summary: "Review",
		Start:   &gcalendar.EventDateTime{DateTime: "2025-04-20T15:00:00-04:00"},
	})
	changed, err = f.ctrl.Refresh(ctx)
	if err != nil || !changed {
		t.Fatalf("expected change after new event, got %v (err %v)", changed, err)
	}
	if !f.ctrl.Entries()[0].Done {
		t.Error("expected done flag to survive refresh")
	}
}

func TestController_RefreshListFailure(t *testing.T) {
	f := newFixture(t)
	f.server.FailNext(googlecaltest.MethodList, http.StatusUnauthorized)
	if _, err := f.ctrl.Refresh(context.Background()); err == nil {
		t.Error("expected list failure")
	}
}

func TestController_Backup(t *testing.T) {
	f := newFixture(t)
	seedRemote(f.server)

	n, err := f.ctrl.Backup(context.Background())
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 tasks backed up, got %d", n)
	}

	data, err := os.ReadFile(f.mirror.Path())
	if err != nil {
		t.Fatalf("failed to read mirror: %v", err)
	}
	if !bytes.Contains(data, []byte(`"2025-04-20"`)) || bytes.Contains(data, []byte("Holiday")) {
		t.Errorf("unexpected mirror contents:\n%s", data)
	}
}

func TestController_Sync(t *testing.T) {
	f := newFixture(t)
	seedRemote(f.server)

	start := time.Date(2025, 4, 20, 9, 0, 0, 0, f.loc)
	if err := f.mirror.Save([]task.Record{
		{Title: "Meeting", Start: start, End: start.Add(time.Hour)},
		{Title: "Gym", Start: start.Add(9 * time.Hour), End: start.Add(10 * time.Hour)},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	report, err := f.ctrl.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(report.Created) != 1 || report.Created[0].Summary != "Gym" {
		t.Errorf("expected only Gym to be created, got %+v", report.Created)
	}
	if len(report.Skipped) != 1 {
		t.Errorf("expected Meeting to be skipped, got %d", len(report.Skipped))
	}
}

func TestController_SyncMalformed(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.mirror.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	report, err := f.ctrl.Sync(context.Background())
	if err != nil {
		t.Fatalf("expected malformed file to be tolerated, got %v", err)
	}
	if report == nil || len(report.Created) != 0 || report.Err() != nil {
		t.Errorf("expected an empty report, got %+v", report)
	}
	if got := f.server.Calls(googlecaltest.MethodInsert); got != 0 {
		t.Errorf("expected no inserts, got %d", got)
	}
	if len(f.ctrl.Entries()) != 0 {
		t.Error("expected empty state")
	}
}

func TestController_LoadMalformed(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.mirror.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := f.ctrl.Load(); err != nil {
		t.Fatalf("expected malformed file to be tolerated, got %v", err)
	}
	if len(f.ctrl.Entries()) != 0 {
		t.Error("expected empty state")
	}
}

func TestRenderEntries(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, 4, 20, 0, 0, 0, 0, loc)
	entries := []Entry{
		{Record: task.Record{Title: "Meeting", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}},
		{Record: task.Record{Title: "Lunch", Start: day.Add(12 * time.Hour), End: day.Add(12*time.Hour + 30*time.Minute)}, Done: true},
		{Record: task.Record{Title: "Errands", Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 1)}},
	}

	var buf bytes.Buffer
	if err := RenderEntries(&buf, entries); err != nil {
		t.Fatalf("RenderEntries failed: %v", err)
	}

	want := "4/20/25\n" +
		"  1. [ ] 9:00 AM | 1 hour | Meeting\n" +
		"  2. [x] 12:00 PM | 0.5 hours | Lunch\n" +
		"4/21/25\n" +
		"  3. [ ] Errands\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := RenderEntries(&buf, nil); err != nil {
		t.Fatalf("RenderEntries failed: %v", err)
	}
	if buf.String() != "Add a task and it will be shown here.\n" {
		t.Errorf("unexpected empty output %q", buf.String())
	}
}
