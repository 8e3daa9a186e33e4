package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"
	"schedcal/internal/notify"
)

// NoCandidate is the selected_candidate value sent when none of the proposed
// dates suit the candidate.
const NoCandidate = "none"

// Book confirms one of a form's candidates. An event is created in every
// interviewer's calendar, the form is marked confirmed and the booked slot is
// withdrawn from every other form. Confirmation mails are sent in the
// background. When the candidate picked no slot the interviewers are told so
// and nothing is booked.
func (s *Service) Book(ctx context.Context, req models.AppointmentRequest) (models.AppointmentResponse, error) {
	if req.FormID == "" {
		return models.AppointmentResponse{}, fmt.Errorf("%w: form_id is required", ErrInvalidRequest)
	}
	form, err := s.deps.Forms.Get(ctx, req.FormID)
	if err != nil {
		return models.AppointmentResponse{}, err
	}
	interviewers := emails(req.Participants)
	if len(interviewers) == 0 {
		interviewers = form.Emails()
	}

	selected := strings.TrimSpace(req.SelectedCandidate)
	if selected == "" || strings.EqualFold(selected, NoCandidate) {
		mail, err := notify.NoAvailability(s.settings.SenderEmail, interviewers, req)
		if err != nil {
			return models.AppointmentResponse{}, err
		}
		s.sendInBackground(ctx, mail)
		s.logger.Info("Candidate declined every proposed date", "form_id", form.ID)
		return models.AppointmentResponse{
			Message:      "No suitable date, interviewers have been notified",
			Participants: interviewers,
		}, nil
	}

	if form.IsConfirmed {
		return models.AppointmentResponse{}, fmt.Errorf("%w: %s", ErrConflict, form.ID)
	}
	candidate, start, end, err := parseCandidate(selected)
	if err != nil {
		return models.AppointmentResponse{}, err
	}

	tz := s.timeZone(form.TimeZone)
	resp := models.AppointmentResponse{Message: "Appointment created"}
	var refs []models.EventRef
	for _, p := range interviewers {
		ev := models.Event{
			Title:       fmt.Sprintf("[%s / %s] Interview", req.Company, req.CandidateName()),
			Description: eventBody(req),
			StartTime:   start,
			EndTime:     end,
			TimeZone:    tz,
			Organizer:   p,
			Attendees:   []string{p},
			Online:      true,
		}
		created, err := s.deps.Events.CreateEvent(ctx, p, ev)
		if err != nil {
			s.logger.Error("Failed to create interview event", "participant", p, "form_id", form.ID, "error", err)
			continue
		}
		refs = append(refs, models.EventRef{Participant: p, EventID: created.ID})
		resp.Subjects = append(resp.Subjects, created.Title)
		resp.MeetingURLs = append(resp.MeetingURLs, created.JoinURL)
		resp.Participants = append(resp.Participants, p)
	}
	if len(refs) == 0 {
		return models.AppointmentResponse{}, fmt.Errorf("%w: no interview event could be created", ErrProvider)
	}

	if err := s.deps.Forms.SetConfirmation(ctx, form.ID, models.Confirmation{SelectedCandidate: candidate, EventIDs: refs}); err != nil {
		s.rollback(ctx, form.ID, refs, false)
		return models.AppointmentResponse{}, err
	}
	removed, err := s.deps.Forms.RemoveCandidateFromOthers(ctx, form.ID, candidate)
	if err != nil {
		s.rollback(ctx, form.ID, refs, true)
		return models.AppointmentResponse{}, err
	}
	s.logger.Info("Booked interview", "form_id", form.ID, "events", len(refs), "other_forms_updated", removed)

	if s.deps.Appointments != nil {
		row := models.Appointment{
			FormID:         form.ID,
			CandidateName:  req.CandidateName(),
			CandidateEmail: req.CandidateEmail,
			CandidateID:    req.CandidateID,
			Company:        req.Company,
			University:     req.University,
			InterviewStage: req.InterviewStage,
			StartTime:      start,
			EndTime:        end,
			Participants:   resp.Participants,
		}
		if _, err := s.deps.Appointments.Create(ctx, row); err != nil {
			s.logger.Error("Failed to record appointment", "form_id", form.ID, "error", err)
		}
	}

	mails, err := s.confirmationMails(req, form.ID, resp.Participants, start, end, firstNonEmpty(resp.MeetingURLs))
	if err != nil {
		s.logger.Error("Failed to render confirmation mails", "form_id", form.ID, "error", err)
		return resp, nil
	}
	s.sendInBackground(ctx, mails...)
	return resp, nil
}

// Reschedule releases a booked form. With a new candidate the existing events
// are moved there and the form stays confirmed. Without one every event is
// deleted and the form is reset so the candidate can book again; the form is
// left untouched when any deletion fails.
func (s *Service) Reschedule(ctx context.Context, req models.RescheduleRequest) (models.RescheduleResponse, error) {
	if req.FormID == "" {
		return models.RescheduleResponse{}, fmt.Errorf("%w: form_id is required", ErrInvalidRequest)
	}
	form, err := s.deps.Forms.Get(ctx, req.FormID)
	if err != nil {
		return models.RescheduleResponse{}, err
	}
	if strings.TrimSpace(req.SelectedCandidate) != "" {
		return s.move(ctx, form, req.SelectedCandidate)
	}
	return s.release(ctx, form)
}

func (s *Service) release(ctx context.Context, form models.FormData) (models.RescheduleResponse, error) {
	var errs []error
	deleted := 0
	for _, ref := range form.EventIDs {
		if err := s.deps.Events.DeleteEvent(ctx, ref.Participant, ref.EventID); err != nil {
			s.logger.Error("Failed to delete interview event", "participant", ref.Participant, "event_id", ref.EventID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ref.Participant, err))
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return models.RescheduleResponse{}, fmt.Errorf("%w: %w", ErrProvider, errors.Join(errs...))
	}

	if err := s.deps.Forms.Reset(ctx, form.ID); err != nil {
		return models.RescheduleResponse{}, err
	}
	if s.deps.Appointments != nil {
		if _, err := s.deps.Appointments.DeleteByFormID(ctx, form.ID); err != nil {
			s.logger.Error("Failed to remove appointment record", "form_id", form.ID, "error", err)
		}
	}
	s.logger.Info("Released booking", "form_id", form.ID, "deleted", deleted)
	return models.RescheduleResponse{Message: "Booking released", Deleted: deleted}, nil
}

func (s *Service) move(ctx context.Context, form models.FormData, selected string) (models.RescheduleResponse, error) {
	if !form.IsConfirmed || len(form.EventIDs) == 0 {
		return models.RescheduleResponse{}, fmt.Errorf("%w: form %s has no booking to move", ErrInvalidRequest, form.ID)
	}
	candidate, start, end, err := parseCandidate(selected)
	if err != nil {
		return models.RescheduleResponse{}, err
	}

	tz := s.timeZone(form.TimeZone)
	var errs []error
	for _, ref := range form.EventIDs {
		if err := s.deps.Events.UpdateEventTime(ctx, ref.Participant, ref.EventID, start, end, tz); err != nil {
			s.logger.Error("Failed to move interview event", "participant", ref.Participant, "event_id", ref.EventID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ref.Participant, err))
		}
	}
	if len(errs) > 0 {
		return models.RescheduleResponse{}, fmt.Errorf("%w: %w", ErrProvider, errors.Join(errs...))
	}

	if err := s.deps.Forms.SetConfirmation(ctx, form.ID, models.Confirmation{SelectedCandidate: candidate, EventIDs: form.EventIDs}); err != nil {
		return models.RescheduleResponse{}, err
	}
	if _, err := s.deps.Forms.RemoveCandidateFromOthers(ctx, form.ID, candidate); err != nil {
		return models.RescheduleResponse{}, err
	}
	if s.deps.Appointments != nil {
		s.moveAppointment(ctx, form.ID, start, end)
	}
	s.logger.Info("Moved booking", "form_id", form.ID, "events", len(form.EventIDs), "start", candidate[0])
	return models.RescheduleResponse{Message: "Booking moved", Moved: len(form.EventIDs)}, nil
}

// rollback deletes the events of a booking that could not be recorded and, when
// the confirmation was already written, resets the form. Events that cannot be
// deleted are logged with their ids.
func (s *Service) rollback(ctx context.Context, formID string, refs []models.EventRef, confirmed bool) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.deps.Events.DeleteEvent(ctx, ref.Participant, ref.EventID); err != nil {
			s.logger.Error("Orphaned interview event", "form_id", formID, "participant", ref.Participant, "event_id", ref.EventID, "error", err)
		}
	}
	if confirmed {
		if err := s.deps.Forms.Reset(ctx, formID); err != nil {
			s.logger.Error("Failed to reset form after booking failure", "form_id", formID, "error", err)
		}
	}
	s.logger.Warn("Rolled back booking", "form_id", formID, "events", len(refs))
}

// moveAppointment rewrites the appointment row of a moved booking.
func (s *Service) moveAppointment(ctx context.Context, formID string, start, end time.Time) {
	row, err := s.deps.Appointments.GetByFormID(ctx, formID)
	if errors.Is(err, models.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("Failed to load appointment record", "form_id", formID, "error", err)
		return
	}
	if _, err := s.deps.Appointments.DeleteByFormID(ctx, formID); err != nil {
		s.logger.Error("Failed to remove appointment record", "form_id", formID, "error", err)
		return
	}
	row.ID = 0
	row.StartTime, row.EndTime = start, end
	if _, err := s.deps.Appointments.Create(ctx, row); err != nil {
		s.logger.Error("Failed to record appointment", "form_id", formID, "error", err)
	}
}

func (s *Service) confirmationMails(req models.AppointmentRequest, formID string, interviewers []string, start, end time.Time, meetingURL string) ([]models.Mail, error) {
	interviewer, err := notify.InterviewerConfirmation(s.settings.SenderEmail, interviewers, req, start, end, meetingURL)
	if err != nil {
		return nil, err
	}
	mails := []models.Mail{interviewer}
	if req.CandidateEmail == "" {
		return mails, nil
	}
	link := strings.TrimRight(s.settings.APIURL, "/") + "/reschedule?id=" + url.QueryEscape(formID)
	candidate, err := notify.CandidateConfirmation(s.settings.SenderEmail, req, start, end, meetingURL, link)
	if err != nil {
		return nil, err
	}
	return append(mails, candidate), nil
}

func parseCandidate(s string) ([2]string, time.Time, time.Time, error) {
	c, err := availability.ParseCandidate(s)
	if err != nil {
		return [2]string{}, time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	start, _ := availability.ParseISO(c[0])
	end, _ := availability.ParseISO(c[1])
	return c, start, end, nil
}

func eventBody(req models.AppointmentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate: %s<br>", html.EscapeString(req.CandidateName()))
	if req.Company != "" {
		fmt.Fprintf(&b, "Company: %s<br>", html.EscapeString(req.Company))
	}
	if req.CandidateEmail != "" {
		fmt.Fprintf(&b, "Email: %s<br>", html.EscapeString(req.CandidateEmail))
	}
	if req.InterviewStage != "" {
		fmt.Fprintf(&b, "Stage: %s<br>", html.EscapeString(req.InterviewStage))
	}
	return b.String()
}

func emails(ps []models.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if s := strings.TrimSpace(string(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(ss []string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
