package icloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"schedcal/internal/models"
)

// fakeCalendar serves .ics objects from memory.
type fakeCalendar struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(b)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		io.WriteString(w, body)
	case http.MethodDelete:
		if _, ok := f.objects[r.URL.Path]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCalendar) get(p string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[p]
}

func newTestClient(t *testing.T) (*CalDAVClient, *fakeCalendar) {
	t.Helper()
	fake := &fakeCalendar{objects: make(map[string]string)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := newClient(srv.Client(), srv.URL+"/", "/123/calendars/interviews/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, fake
}

func TestCreateUpdateDeleteEvent(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ev, err := c.CreateEvent(ctx, "lead@example.com", models.Event{
		Title:     "Interview: Sato Ken",
		StartTime: time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 10, 11, 0, 0, 0, time.UTC),
		TimeZone:  "UTC",
		Attendees: []string{"lead@example.com", "dev@example.com"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID == "" || ev.ID != ev.UID {
		t.Fatalf("expected the UID as event id, got %+v", ev)
	}

	objPath := "/123/calendars/interviews/" + ev.UID + ".ics"
	body := fake.get(objPath)
	for _, want := range []string{"BEGIN:VEVENT", "SUMMARY:Interview: Sato Ken", "DTSTART:20250110T100000Z", "mailto:dev@example.com", "ORGANIZER:mailto:lead@example.com"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in stored object, got:\n%s", want, body)
		}
	}

	start := time.Date(2025, 1, 11, 14, 0, 0, 0, time.UTC)
	if err := c.UpdateEventTime(ctx, "lead@example.com", ev.ID, start, start.Add(time.Hour), "UTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body := fake.get(objPath); !strings.Contains(body, "DTSTART:20250111T140000Z") || !strings.Contains(body, "DTEND:20250111T150000Z") {
		t.Fatalf("expected the moved times in stored object, got:\n%s", body)
	}

	if err := c.DeleteEvent(ctx, "lead@example.com", ev.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.get(objPath) != "" {
		t.Fatal("expected the object to be removed")
	}
}

func TestUpdateMissingEvent(t *testing.T) {
	c, _ := newTestClient(t)
	start := time.Date(2025, 1, 11, 14, 0, 0, 0, time.UTC)
	if err := c.UpdateEventTime(context.Background(), "", "missing", start, start.Add(time.Hour), "UTC"); err == nil {
		t.Fatal("expected an error for a missing event")
	}
}
