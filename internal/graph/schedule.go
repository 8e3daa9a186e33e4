package graph

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"schedcal/internal/availability"
	"schedcal/internal/models"

	"golang.org/x/sync/errgroup"
)

const defaultInterval = 30

type scheduleRequest struct {
	Schedules                []string         `json:"schedules"`
	StartTime                dateTimeTimeZone `json:"startTime"`
	EndTime                  dateTimeTimeZone `json:"endTime"`
	AvailabilityViewInterval int              `json:"availabilityViewInterval"`
}

type scheduleResponse struct {
	Value []struct {
		ScheduleID       string `json:"scheduleId"`
		AvailabilityView string `json:"availabilityView"`
		Error            *struct {
			Message      string `json:"message"`
			ResponseCode string `json:"responseCode"`
		} `json:"error,omitempty"`
	} `json:"value"`
}

// FetchFreeBusy asks getSchedule for every participant and every date of the
// query, returning the availability view strings as bitmaps.
func (c *Client) FetchFreeBusy(ctx context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error) {
	startHour, endHour, err := availability.DayWindow(q.StartTime, q.EndTime)
	if err != nil {
		return nil, err
	}
	interval := q.GridMinutes
	if interval == 0 {
		interval = defaultInterval
	}
	dates := availability.Dates(q.StartDate, q.EndDate)

	var mu sync.Mutex
	fb := make(availability.FreeBusy, len(q.Participants))
	for _, p := range q.Participants {
		fb[p] = make(map[string]string, len(dates))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range q.Participants {
		for _, date := range dates {
			g.Go(func() error {
				req := scheduleRequest{
					Schedules: []string{p},
					StartTime: dateTimeTimeZone{
						DateTime: availability.FormatISO(availability.FloatToDateTime(date, startHour)),
						TimeZone: q.TimeZone,
					},
					EndTime: dateTimeTimeZone{
						DateTime: availability.FormatISO(availability.FloatToDateTime(date, endHour)),
						TimeZone: q.TimeZone,
					},
					AvailabilityViewInterval: interval,
				}
				var resp scheduleResponse
				if err := c.do(ctx, http.MethodPost, userPath(p, "calendar", "getSchedule"), req, &resp); err != nil {
					return fmt.Errorf("getSchedule for %s on %s: %w", p, date.Format(availability.DateLayout), err)
				}
				if len(resp.Value) == 0 {
					return fmt.Errorf("getSchedule for %s on %s returned no schedule", p, date.Format(availability.DateLayout))
				}
				if e := resp.Value[0].Error; e != nil {
					return fmt.Errorf("getSchedule for %s failed: %s", p, e.Message)
				}

				mu.Lock()
				fb[p][date.Format(availability.DateLayout)] = resp.Value[0].AvailabilityView
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("Successfully fetched schedules from Graph", "participants", len(q.Participants), "days", len(dates))
	return fb, nil
}
