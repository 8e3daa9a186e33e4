package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"
)

type fakeFetcher struct {
	fb    availability.FreeBusy
	err   error
	calls int
	last  models.FreeBusyQuery
}

func (f *fakeFetcher) FetchFreeBusy(_ context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error) {
	f.calls++
	f.last = q
	return f.fb, f.err
}

type moveCall struct {
	owner, id  string
	start, end time.Time
	tz         string
}

type fakeEvents struct {
	mu      sync.Mutex
	fail    map[string]bool
	created []models.Event
	moved   []moveCall
	deleted []string
}

func (f *fakeEvents) CreateEvent(_ context.Context, owner string, ev models.Event) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[owner] {
		return models.Event{}, errors.New("calendar unavailable")
	}
	ev.ID = fmt.Sprintf("evt-%d", len(f.created)+1)
	ev.JoinURL = "https://meet.example.com/" + ev.ID
	f.created = append(f.created, ev)
	return ev, nil
}

func (f *fakeEvents) UpdateEventTime(_ context.Context, owner, eventID string, start, end time.Time, tz string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[owner] {
		return errors.New("calendar unavailable")
	}
	f.moved = append(f.moved, moveCall{owner, eventID, start, end, tz})
	return nil
}

func (f *fakeEvents) DeleteEvent(_ context.Context, owner, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[owner] {
		return errors.New("calendar unavailable")
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeForms struct {
	forms      map[string]models.FormData
	next       int
	confirmErr error
	removeErr  error
}

func newFakeForms(forms ...models.FormData) *fakeForms {
	f := &fakeForms{forms: make(map[string]models.FormData)}
	for _, form := range forms {
		f.forms[form.ID] = form
	}
	return f
}

func (f *fakeForms) Create(_ context.Context, form models.FormData) (string, error) {
	f.next++
	form.ID = fmt.Sprintf("form-%d", f.next)
	f.forms[form.ID] = form
	return form.ID, nil
}

func (f *fakeForms) Get(_ context.Context, id string) (models.FormData, error) {
	form, ok := f.forms[id]
	if !ok {
		return models.FormData{}, models.ErrNotFound
	}
	return form, nil
}

func (f *fakeForms) SaveCandidates(_ context.Context, id string, candidates [][2]string, attendees map[string][]string) error {
	form, ok := f.forms[id]
	if !ok {
		return models.ErrNotFound
	}
	form.Candidates = candidates
	form.SlotAttendeesMap = attendees
	f.forms[id] = form
	return nil
}

func (f *fakeForms) SetConfirmation(_ context.Context, id string, c models.Confirmation) error {
	if f.confirmErr != nil {
		return f.confirmErr
	}
	form, ok := f.forms[id]
	if !ok {
		return models.ErrNotFound
	}
	form.IsConfirmed = true
	form.SelectedCandidate = c.SelectedCandidate[:]
	form.EventIDs = c.EventIDs
	f.forms[id] = form
	return nil
}

func (f *fakeForms) RemoveCandidateFromOthers(_ context.Context, id string, candidate [2]string) (int64, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	var n int64
	for fid, form := range f.forms {
		if fid == id {
			continue
		}
		kept := form.Candidates[:0:0]
		for _, c := range form.Candidates {
			if c != candidate {
				kept = append(kept, c)
			}
		}
		if len(kept) != len(form.Candidates) {
			form.Candidates = kept
			f.forms[fid] = form
			n++
		}
	}
	return n, nil
}

func (f *fakeForms) Reset(_ context.Context, id string) error {
	form, ok := f.forms[id]
	if !ok {
		return models.ErrNotFound
	}
	form.IsConfirmed = false
	form.SelectedCandidate = nil
	form.EventIDs = nil
	f.forms[id] = form
	return nil
}

func (f *fakeForms) Delete(_ context.Context, id string) error {
	if _, ok := f.forms[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.forms, id)
	return nil
}

type fakeAppointments struct {
	rows      []models.Appointment
	deleted   []string
	employees []models.Employee
}

func (f *fakeAppointments) Create(_ context.Context, a models.Appointment) (int64, error) {
	f.rows = append(f.rows, a)
	return int64(len(f.rows)), nil
}

func (f *fakeAppointments) GetByFormID(_ context.Context, formID string) (models.Appointment, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].FormID == formID {
			return f.rows[i], nil
		}
	}
	return models.Appointment{}, models.ErrNotFound
}

func (f *fakeAppointments) DeleteByFormID(_ context.Context, formID string) (int64, error) {
	f.deleted = append(f.deleted, formID)
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.FormID != formID {
			kept = append(kept, r)
		}
	}
	n := int64(len(f.rows) - len(kept))
	f.rows = kept
	return n, nil
}

func (f *fakeAppointments) ListEmployees(context.Context) ([]models.Employee, error) {
	return f.employees, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []models.Mail
}

func (f *fakeMailer) Send(_ context.Context, m models.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return nil
}

type fixture struct {
	svc    *Service
	fetch  *fakeFetcher
	events *fakeEvents
	forms  *fakeForms
	appts  *fakeAppointments
	mailer *fakeMailer
}

func newFixture(forms ...models.FormData) *fixture {
	f := &fixture{
		fetch:  &fakeFetcher{},
		events: &fakeEvents{fail: map[string]bool{}},
		forms:  newFakeForms(forms...),
		appts:  &fakeAppointments{},
		mailer: &fakeMailer{},
	}
	f.svc = New(slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		FreeBusy:     f.fetch,
		Events:       f.events,
		Forms:        f.forms,
		Appointments: f.appts,
		Mailer:       f.mailer,
	}, Settings{
		SenderEmail:     "noreply@example.com",
		APIURL:          "https://api.example.com/",
		DefaultTimeZone: "Asia/Tokyo",
		GridMinutes:     30,
	})
	return f
}
