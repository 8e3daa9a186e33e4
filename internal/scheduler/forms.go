package scheduler

import (
	"context"
	"fmt"

	"schedcal/internal/availability"
	"schedcal/internal/models"
)

// StoreForm validates and persists a new form and returns its id.
func (s *Service) StoreForm(ctx context.Context, form models.FormData) (string, error) {
	if form.DurationMinutes <= 0 {
		return "", fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidRequest)
	}
	if len(form.Participants) == 0 {
		return "", fmt.Errorf("%w: at least one participant is required", ErrInvalidRequest)
	}
	if err := checkCandidates(form.Candidates); err != nil {
		return "", err
	}
	form.IsConfirmed = false
	form.SelectedCandidate = nil
	form.EventIDs = nil
	form.TimeZone = s.timeZone(form.TimeZone)

	id, err := s.deps.Forms.Create(ctx, form)
	if err != nil {
		return "", err
	}
	return id, nil
}

// RetrieveForm loads a form with its candidates split into slots of the
// form's duration.
func (s *Service) RetrieveForm(ctx context.Context, id string) (models.FormData, error) {
	form, err := s.deps.Forms.Get(ctx, id)
	if err != nil {
		return models.FormData{}, err
	}
	split, err := availability.SplitCandidates(form.Candidates, form.DurationMinutes)
	if err != nil {
		return models.FormData{}, fmt.Errorf("form %s holds invalid candidates: %w", id, err)
	}
	form.Candidates = split
	return form, nil
}

// RescheduleData returns what the reschedule page shows: the form with its
// candidates split, as for RetrieveForm.
func (s *Service) RescheduleData(ctx context.Context, id string) (models.FormData, error) {
	return s.RetrieveForm(ctx, id)
}

// UpdateCandidates replaces the candidates offered by a form.
func (s *Service) UpdateCandidates(ctx context.Context, id string, candidates [][2]string, attendees map[string][]string) error {
	if err := checkCandidates(candidates); err != nil {
		return err
	}
	return s.deps.Forms.SaveCandidates(ctx, id, candidates, attendees)
}

// DeleteForm removes a form.
func (s *Service) DeleteForm(ctx context.Context, id string) error {
	return s.deps.Forms.Delete(ctx, id)
}

// Employees lists the employee directory. Without an appointment store the
// directory is empty.
func (s *Service) Employees(ctx context.Context) ([]models.Employee, error) {
	if s.deps.Appointments == nil {
		return []models.Employee{}, nil
	}
	return s.deps.Appointments.ListEmployees(ctx)
}

func checkCandidates(candidates [][2]string) error {
	for _, c := range candidates {
		start, err := availability.ParseISO(c[0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		end, err := availability.ParseISO(c[1])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if !end.After(start) {
			return fmt.Errorf("%w: candidate %s/%s does not end after it starts", ErrInvalidRequest, c[0], c[1])
		}
	}
	return nil
}
