package mirror

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/drewfead/tasksched/internal/task"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

const productID = "-//drewfead//tasksched//EN"

// ErrNothingToExport is returned when no record can be written as an event.
var ErrNothingToExport = errors.New("no tasks to export")

// uidNamespace scopes the name-based UIDs of exported tasks.
var uidNamespace = uuid.MustParse("8c4f4c8e-1d0a-4c7e-9b6e-5f3a2d1e0b7c")

// EventUID derives a stable UID from a record's title and start minute, so
// repeated exports of the same task replace rather than duplicate it.
func EventUID(rec task.Record) string {
	return uuid.NewSHA1(uidNamespace, []byte(rec.Key().String())).String() + "@tasksched"
}

// ExportICS writes records as an iCalendar feed. Invalid records are skipped.
// stamp is used for DTSTAMP. Times are written in UTC so the feed needs no
// VTIMEZONE components.
func ExportICS(w io.Writer, records []task.Record, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, EventUID(rec))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetText(ical.PropSummary, rec.Title)
		start := rec.Start.UTC()
		end := rec.End.UTC()
		if !end.After(start) {
			end = start
		}
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
		event.Props.SetDateTime(ical.PropDateTimeEnd, end)
		if rec.Description != "" {
			event.Props.SetText(ical.PropDescription, rec.Description)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	if len(cal.Children) == 0 {
		return ErrNothingToExport
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("unable to encode calendar: %w", err)
	}
	return nil
}
