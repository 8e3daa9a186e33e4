package scheduler

import (
	"context"
	"fmt"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"
)

// Availability fetches free/busy data for the request's participants and
// returns every common window that meets the quorum.
func (s *Service) Availability(ctx context.Context, req models.ScheduleRequest) (models.AvailabilityResponse, error) {
	started := time.Now()
	q, err := req.Query(s.settings.GridMinutes)
	if err != nil {
		return models.AvailabilityResponse{}, err
	}
	fq, err := req.FreeBusyQuery(q, s.settings.DefaultTimeZone)
	if err != nil {
		return models.AvailabilityResponse{}, err
	}

	fb := availability.FreeBusy{}
	if len(availability.Dates(fq.StartDate, fq.EndDate)) > 0 {
		fb, err = s.deps.FreeBusy.FetchFreeBusy(ctx, fq)
		if err != nil {
			return models.AvailabilityResponse{}, fmt.Errorf("%w: %w", ErrProvider, err)
		}
	}

	res, err := availability.Calculate(q, fb)
	if err != nil {
		s.logger.Warn("Availability computation rejected provider data", "error", err)
		return models.AvailabilityResponse{}, err
	}

	s.logger.Info("Computed common availability",
		"participants", len(q.Participants),
		"required", q.Required,
		"windows", len(res.CommonAvailability),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return models.AvailabilityResponse{
		CommonAvailability: res.CommonAvailability,
		SlotAttendeesMap:   res.SlotAttendees,
	}, nil
}
