// Package scheduler runs the interview scheduling use cases: computing common
// availability, storing forms, booking a candidate slot and rescheduling.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"
)

var (
	// ErrInvalidRequest reports a request the caller must fix.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrProvider reports a failed call to the calendar or mail provider.
	ErrProvider = errors.New("calendar provider error")
	// ErrConflict reports a booking on a form that is already confirmed.
	ErrConflict = errors.New("form already confirmed")
)

// FreeBusyFetcher returns per-participant, per-day bitmaps. Implementations
// handle their own authentication and retries.
type FreeBusyFetcher interface {
	FetchFreeBusy(ctx context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error)
}

// EventWriter creates, moves and deletes interview events.
type EventWriter interface {
	CreateEvent(ctx context.Context, owner string, ev models.Event) (models.Event, error)
	UpdateEventTime(ctx context.Context, owner, eventID string, start, end time.Time, timeZone string) error
	DeleteEvent(ctx context.Context, owner, eventID string) error
}

// FormStore persists scheduling forms.
type FormStore interface {
	Create(ctx context.Context, form models.FormData) (string, error)
	Get(ctx context.Context, id string) (models.FormData, error)
	SaveCandidates(ctx context.Context, id string, candidates [][2]string, attendees map[string][]string) error
	SetConfirmation(ctx context.Context, id string, c models.Confirmation) error
	RemoveCandidateFromOthers(ctx context.Context, id string, candidate [2]string) (int64, error)
	Reset(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AppointmentStore records confirmed appointments and serves the employee directory.
type AppointmentStore interface {
	Create(ctx context.Context, a models.Appointment) (int64, error)
	GetByFormID(ctx context.Context, formID string) (models.Appointment, error)
	DeleteByFormID(ctx context.Context, formID string) (int64, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
}

// Mailer delivers HTML mail.
type Mailer interface {
	Send(ctx context.Context, m models.Mail) error
}

// Deps are the collaborators of a Service. Appointments may be nil.
type Deps struct {
	FreeBusy     FreeBusyFetcher
	Events       EventWriter
	Forms        FormStore
	Appointments AppointmentStore
	Mailer       Mailer
}

// Settings carry the configuration values the use cases need.
type Settings struct {
	SenderEmail     string
	APIURL          string
	DefaultTimeZone string
	GridMinutes     int
	MailTimeout     time.Duration
}

// Service implements the scheduling use cases.
type Service struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger
	mails    sync.WaitGroup
}

// New creates a Service. Appointments in deps may be nil.
func New(logger *slog.Logger, deps Deps, settings Settings) *Service {
	if settings.MailTimeout <= 0 {
		settings.MailTimeout = 30 * time.Second
	}
	return &Service{deps: deps, settings: settings, logger: logger}
}

// Wait blocks until every background mail has been handed to the mailer.
func (s *Service) Wait() {
	s.mails.Wait()
}

// sendInBackground delivers mails after the request has returned.
func (s *Service) sendInBackground(ctx context.Context, mails ...models.Mail) {
	ctx = context.WithoutCancel(ctx)
	s.mails.Add(1)
	go func() {
		defer s.mails.Done()
		ctx, cancel := context.WithTimeout(ctx, s.settings.MailTimeout)
		defer cancel()
		for _, m := range mails {
			if err := s.deps.Mailer.Send(ctx, m); err != nil {
				s.logger.Error("Failed to send mail", "subject", m.Subject, "recipients", m.To, "error", err)
				continue
			}
			s.logger.Info("Mail sent", "subject", m.Subject, "recipients", len(m.To))
		}
	}()
}

func (s *Service) timeZone(name string) string {
	if name != "" {
		return name
	}
	return s.settings.DefaultTimeZone
}
