package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/drewfead/tasksched/internal/reconcile"
	"github.com/drewfead/tasksched/internal/task"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// PrimaryCalendarID is the calendar used when none is configured.
const PrimaryCalendarID = "primary"

// Client wraps the Google Calendar API service for a single calendar.
type Client struct {
	service     *calendar.Service
	calendarID  string
	defaultZone string
}

// NewClient creates a new Google Calendar API client bound to calendarID.
// Optionally accepts an endpoint URL for testing with mock servers.
func NewClient(ctx context.Context, httpClient *http.Client, calendarID string, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}

	// Add endpoint override if provided
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = PrimaryCalendarID
	}

	return &Client{
		service:     srv,
		calendarID:  calendarID,
		defaultZone: task.DefaultTimeZone,
	}, nil
}

// WithDefaultZone sets the zone sent for records that carry none.
func (c *Client) WithDefaultZone(zone string) *Client {
	if zone != "" {
		c.defaultZone = zone
	}
	return c
}

// CalendarID returns the calendar this client operates on.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// ListEvents returns single events ordered by start time, capped at
// opts.MaxResults. Only the first page is fetched.
func (c *Client) ListEvents(ctx context.Context, opts reconcile.ListOptions) ([]reconcile.RemoteEvent, error) {
	items, err := c.listRaw(ctx, opts)
	if err != nil {
		return nil, err
	}

	events := make([]reconcile.RemoteEvent, 0, len(items))
	for _, item := range items {
		events = append(events, MapEventToRemote(item))
	}
	return events, nil
}

// Upcoming returns up to n events starting at or after now, the same query
// the smoke test command prints.
func (c *Client) Upcoming(ctx context.Context, now time.Time, n int64) ([]*calendar.Event, error) {
	return c.listRaw(ctx, reconcile.ListOptions{MaxResults: n, TimeMin: now})
}

func (c *Client) listRaw(ctx context.Context, opts reconcile.ListOptions) ([]*calendar.Event, error) {
	call := c.service.Events.List(c.calendarID).Context(ctx).SingleEvents(true).OrderBy("startTime")

	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}
	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events: %w", err)
	}
	return events.Items, nil
}

// CreateEvent inserts the record as a new event.
func (c *Client) CreateEvent(ctx context.Context, rec task.Record) (reconcile.RemoteEvent, error) {
	event := MapRecordToEvent(rec, c.defaultZone)

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return reconcile.RemoteEvent{}, fmt.Errorf("unable to create event: %w", err)
	}
	return MapEventToRemote(created), nil
}

// DeleteEvent deletes an event by id.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.service.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}
	return nil
}
