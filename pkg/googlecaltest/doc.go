// Package googlecaltest provides a mock Google Calendar API server for testing.
//
// The server implements the Calendar API v3 Events endpoints that tasksched
// relies on, so reconciliation can be exercised end to end without
// authentication or network access.
//
// # Supported Operations
//
//   - Insert Event: POST /calendars/{calendarId}/events
//   - List Events: GET /calendars/{calendarId}/events (maxResults, pageToken, timeMin, timeMax, orderBy)
//   - Get Event: GET /calendars/{calendarId}/events/{eventId}
//   - Delete Event: DELETE /calendars/{calendarId}/events/{eventId}
//
// # Basic Usage
//
//	server := googlecaltest.NewServer()
//	defer server.Close()
//
//	client, err := calendar.NewClient(ctx, &http.Client{}, "primary", server.URL)
//
// # Test Helpers
//
//	// Seed an existing event
//	server.AddEvent("primary", &gcalendar.Event{
//	    Summary: "Meeting",
//	    Start:   &gcalendar.EventDateTime{DateTime: "2025-04-20T09:00:00-04:00"},
//	})
//
//	// Inspect state and traffic
//	events := server.GetEvents("primary") // insertion order
//	inserts := server.Calls(googlecaltest.MethodInsert)
//
//	// Inject failures
//	server.FailNext(googlecaltest.MethodDelete, http.StatusInternalServerError)
//	server.FailInsertsOf("Broken", http.StatusBadRequest)
//
//	// Clear events, counters and failures
//	server.Reset()
//
// Listing with orderBy=startTime and singleEvents=true sorts by start instant
// and keeps insertion order for ties, which makes first-match behavior
// deterministic in tests. Errors use the JSON envelope the API client decodes
// into *googleapi.Error.
package googlecaltest
