package googlecaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Method names accepted by FailNext and Calls.
const (
	MethodList   = "list"
	MethodInsert = "insert"
	MethodGet    = "get"
	MethodDelete = "delete"
)

// Server is a mock Google Calendar API server for testing.
type Server struct {
	*httptest.Server
	mu     sync.RWMutex
	events map[string][]*calendar.Event // calendarID -> events in insertion order
	nextID int
	calls  map[string]int
	fail   map[string][]int // method -> queued HTTP status codes
	// failSummary makes inserts of events with these summaries fail with the status.
	failSummary map[string]int
}

// NewServer creates a new mock Google Calendar API server.
func NewServer() *Server {
	s := &Server{}
	s.reset()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) reset() {
	s.events = make(map[string][]*calendar.Event)
	s.nextID = 1
	s.calls = make(map[string]int)
	s.fail = make(map[string][]int)
	s.failSummary = make(map[string]int)
}

// handleRequest routes all requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.URL.Path, "/calendars/") || !strings.Contains(r.URL.Path, "/events") {
		writeError(w, http.StatusNotFound, "unsupported endpoint")
		return
	}
	s.handleCalendars(w, r)
}

// handleCalendars routes calendar-related requests.
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	// Parse URL: /calendar/v3/calendars/{calendarId}/events[/{eventId}]
	path := r.URL.Path
	idx := strings.Index(path, "/calendars/")
	path = path[idx+len("/calendars/"):]
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) < 2 || parts[1] != "events" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid path: %v", parts))
		return
	}
	calendarID := parts[0]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		s.serve(w, MethodList, func() { s.listEvents(w, r, calendarID) })
	case len(parts) == 2 && r.Method == http.MethodPost:
		s.serve(w, MethodInsert, func() { s.insertEvent(w, r, calendarID) })
	case len(parts) == 3 && r.Method == http.MethodGet:
		s.serve(w, MethodGet, func() { s.getEvent(w, calendarID, parts[2]) })
	case len(parts) == 3 && r.Method == http.MethodDelete:
		s.serve(w, MethodDelete, func() { s.deleteEvent(w, calendarID, parts[2]) })
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// serve counts the call and either replays a queued failure or runs handler.
func (s *Server) serve(w http.ResponseWriter, method string, handler func()) {
	s.mu.Lock()
	s.calls[method]++
	status := 0
	if queued := s.fail[method]; len(queued) > 0 {
		status = queued[0]
		s.fail[method] = queued[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(w, status, "injected failure")
		return
	}
	handler()
}

// insertEvent handles POST /calendars/{calendarId}/events
func (s *Server) insertEvent(w http.ResponseWriter, r *http.Request, calendarID string) {
	var event calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.failSummary[event.Summary]; ok {
		writeError(w, status, "injected failure for "+event.Summary)
		return
	}

	s.store(calendarID, &event)
	event.Status = "confirmed"
	event.Created = time.Now().Format(time.RFC3339)
	event.Updated = event.Created

	writeJSON(w, &event)
}

// store assigns an id and link if missing and appends the event. Callers hold mu.
func (s *Server) store(calendarID string, event *calendar.Event) {
	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	}
	event.HtmlLink = fmt.Sprintf("https://calendar.google.com/event?eid=%s", event.Id)
	s.events[calendarID] = append(s.events[calendarID], event)
}

// listEvents handles GET /calendars/{calendarId}/events
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := r.URL.Query()
	timeMin, minOK := parseTime(query.Get("timeMin"))
	timeMax, maxOK := parseTime(query.Get("timeMax"))

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		start, ok := eventStart(evt)
		if minOK && ok && start.Before(timeMin) {
			continue
		}
		if maxOK && ok && !start.Before(timeMax) {
			continue
		}
		events = append(events, evt)
	}

	if query.Get("orderBy") == "startTime" && query.Get("singleEvents") == "true" {
		sort.SliceStable(events, func(i, j int) bool {
			a, _ := eventStart(events[i])
			b, _ := eventStart(events[j])
			return a.Before(b)
		})
	}

	// Simple pagination: token is the start index
	startIdx, _ := strconv.Atoi(query.Get("pageToken"))
	if startIdx > len(events) {
		startIdx = len(events)
	}
	maxRes := len(events)
	if v, err := strconv.Atoi(query.Get("maxResults")); err == nil && v > 0 {
		maxRes = v
	}
	endIdx := min(startIdx+maxRes, len(events))

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   events[startIdx:endIdx],
	}
	if endIdx < len(events) {
		resp.NextPageToken = strconv.Itoa(endIdx)
	}

	writeJSON(w, resp)
}

// getEvent handles GET /calendars/{calendarId}/events/{eventId}
func (s *Server) getEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(calendarID, eventID)
	if i < 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, s.events[calendarID][i])
}

// deleteEvent handles DELETE /calendars/{calendarId}/events/{eventId}
func (s *Server) deleteEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(calendarID, eventID)
	if i < 0 {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	list := s.events[calendarID]
	s.events[calendarID] = append(list[:i:i], list[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// indexOf returns the position of eventID in the calendar, or -1. Callers hold mu.
func (s *Server) indexOf(calendarID, eventID string) int {
	for i, evt := range s.events[calendarID] {
		if evt.Id == eventID {
			return i
		}
	}
	return -1
}

// Reset clears all events, counters and queued failures.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// GetEvents returns the events of a calendar in insertion order (for test assertions).
func (s *Server) GetEvents(calendarID string) []*calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*calendar.Event, len(s.events[calendarID]))
	copy(events, s.events[calendarID])
	return events
}

// AddEvent adds a pre-configured event to the server (for test setup).
func (s *Server) AddEvent(calendarID string, event *calendar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(calendarID, event)
}

// Calls returns how many requests of the given method the server received,
// including injected failures.
func (s *Server) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

// FailNext makes the next request of method fail with status.
// Repeated calls queue further failures.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = append(s.fail[method], status)
}

// FailInsertsOf makes every insert of an event with summary fail with status.
func (s *Server) FailInsertsOf(summary string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSummary[summary] = status
}

func eventStart(evt *calendar.Event) (time.Time, bool) {
	if evt.Start == nil {
		return time.Time{}, false
	}
	if evt.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, evt.Start.DateTime); err == nil {
			return t, true
		}
		// Wall-clock times sent alongside a timeZone have no offset.
		if t, err := time.Parse("2006-01-02T15:04:05", evt.Start.DateTime); err == nil {
			return t, true
		}
	}
	if evt.Start.Date != "" {
		if t, err := time.Parse("2006-01-02", evt.Start.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError replies with the error envelope the Google API client decodes.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
