package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"schedcal/internal/availability"
	"schedcal/internal/models"
	"schedcal/internal/scheduler"
)

type fakeScheduler struct {
	err      error
	lastID   string
	lastBook models.AppointmentRequest
}

func (f *fakeScheduler) Availability(_ context.Context, req models.ScheduleRequest) (models.AvailabilityResponse, error) {
	if f.err != nil {
		return models.AvailabilityResponse{}, f.err
	}
	start, end := req.StartDate+"T10:00:00", req.StartDate+"T11:00:00"
	return models.AvailabilityResponse{
		CommonAvailability: [][2]string{{start, end}},
		SlotAttendeesMap:   map[string][]string{availability.Key(start, end): req.Emails()},
	}, nil
}

func (f *fakeScheduler) StoreForm(context.Context, models.FormData) (string, error) {
	return "form-1", f.err
}

func (f *fakeScheduler) RetrieveForm(_ context.Context, id string) (models.FormData, error) {
	f.lastID = id
	return models.FormData{ID: id}, f.err
}

func (f *fakeScheduler) RescheduleData(_ context.Context, id string) (models.FormData, error) {
	f.lastID = id
	return models.FormData{ID: id, IsConfirmed: true}, f.err
}

func (f *fakeScheduler) UpdateCandidates(_ context.Context, id string, _ [][2]string, _ map[string][]string) error {
	f.lastID = id
	return f.err
}

func (f *fakeScheduler) DeleteForm(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeScheduler) Book(_ context.Context, req models.AppointmentRequest) (models.AppointmentResponse, error) {
	f.lastBook = req
	return models.AppointmentResponse{Message: "Appointment created"}, f.err
}

func (f *fakeScheduler) Reschedule(context.Context, models.RescheduleRequest) (models.RescheduleResponse, error) {
	return models.RescheduleResponse{Message: "Booking released", Deleted: 2}, f.err
}

func (f *fakeScheduler) Employees(context.Context) ([]models.Employee, error) {
	return []models.Employee{{ID: 1, Name: "Sato"}}, f.err
}

func newTestServer(svc Scheduler, checks map[string]Check) *Server {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, Options{
		AllowedOrigins: []string{"https://app.example.com"},
		ReadyChecks:    checks,
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAvailabilityEndpoint(t *testing.T) {
	s := newTestServer(&fakeScheduler{}, nil)
	rec := do(t, s, http.MethodPost, "/availability",
		`{"start_date":"2025-01-10","end_date":"2025-01-10","start_time":"09:00","end_time":"12:00",
		"duration_minutes":60,"participants":[{"email":"a@example.com"},"b@example.com"],"required_participants":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp models.AvailabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	key := "2025-01-10T10:00:00/2025-01-10T11:00:00"
	if got := resp.SlotAttendeesMap[key]; len(got) != 2 || got[0] != "a@example.com" {
		t.Fatalf("expected both participants for %s, got %v", key, got)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("%w: bad date", availability.ErrFormat), http.StatusUnprocessableEntity, "could not compute availability"},
		{fmt.Errorf("%w: short bitmap", availability.ErrDataShape), http.StatusUnprocessableEntity, "could not compute availability"},
		{fmt.Errorf("%w: required too large", availability.ErrConfiguration), http.StatusBadRequest, ""},
		{fmt.Errorf("%w: token expired", scheduler.ErrProvider), http.StatusBadGateway, "calendar provider unavailable"},
		{models.ErrNotFound, http.StatusNotFound, "not found"},
		{scheduler.ErrConflict, http.StatusConflict, ""},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		s := newTestServer(&fakeScheduler{err: tc.err}, nil)
		rec := do(t, s, http.MethodPost, "/availability", `{"participants":["a@example.com"]}`)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if tc.msg != "" && body["error"] != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(&fakeScheduler{}, nil)
	rec := do(t, s, http.MethodPost, "/appointment", `{"form_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFormEndpoints(t *testing.T) {
	svc := &fakeScheduler{}
	s := newTestServer(svc, nil)

	rec := do(t, s, http.MethodPost, "/store_form_data", `{"duration_minutes":60,"participants":["a@example.com"]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"token":"form-1"`) {
		t.Fatalf("expected token, got %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/retrieve_form_data?token=form-1", "")
	if rec.Code != http.StatusOK || svc.lastID != "form-1" {
		t.Fatalf("expected form-1 retrieved, got %d %q", rec.Code, svc.lastID)
	}
	if rec = do(t, s, http.MethodGet, "/retrieve_form_data", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without token, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/reschedule?id=form-2", "")
	if rec.Code != http.StatusOK || svc.lastID != "form-2" {
		t.Fatalf("expected form-2 reschedule data, got %d %q", rec.Code, svc.lastID)
	}

	rec = do(t, s, http.MethodPut, "/forms/form-3/candidates", `{"schedule_interview_datetimes":[]}`)
	if rec.Code != http.StatusNoContent || svc.lastID != "form-3" {
		t.Fatalf("expected candidates of form-3 updated, got %d %q", rec.Code, svc.lastID)
	}

	rec = do(t, s, http.MethodDelete, "/forms/form-4", "")
	if rec.Code != http.StatusNoContent || svc.lastID != "form-4" {
		t.Fatalf("expected form-4 deleted, got %d %q", rec.Code, svc.lastID)
	}
}

func TestBookingEndpoints(t *testing.T) {
	svc := &fakeScheduler{}
	s := newTestServer(svc, nil)

	rec := do(t, s, http.MethodPost, "/appointment", `{"form_id":"f1","selected_candidate":"none","participants":["a@example.com"]}`)
	if rec.Code != http.StatusOK || svc.lastBook.FormID != "f1" || svc.lastBook.SelectedCandidate != "none" {
		t.Fatalf("unexpected booking %d %+v", rec.Code, svc.lastBook)
	}

	rec = do(t, s, http.MethodPost, "/reschedule", `{"form_id":"f1"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"deleted":2`) {
		t.Fatalf("unexpected reschedule response %d %s", rec.Code, rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/employee_directory", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Sato") {
		t.Fatalf("unexpected directory response %d %s", rec.Code, rec.Body)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	checks := map[string]Check{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}
	s := newTestServer(&fakeScheduler{}, checks)

	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected 503 naming the failed check, got %d %s", rec.Code, rec.Body)
	}

	do(t, s, http.MethodGet, "/employee_directory", "")
	rec = do(t, s, http.MethodGet, "/metrics", "")
	if !strings.Contains(rec.Body.String(), `schedcal_http_requests_total{route="/employee_directory",status="200"} 1`) {
		t.Fatalf("expected request counter in metrics, got %s", rec.Body)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(&fakeScheduler{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/employee_directory", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}
