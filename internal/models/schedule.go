package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"schedcal/internal/availability"
)

// Participant is a canonical participant identifier, normally an email
// address. JSON input may be a plain string or an object with an "email" field.
type Participant string

// UnmarshalJSON accepts "a@example.com" and {"email": "a@example.com"}.
func (p *Participant) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("failed to decode participant: %w", err)
		}
		*p = Participant(strings.TrimSpace(obj.Email))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode participant: %w", err)
	}
	*p = Participant(strings.TrimSpace(s))
	return nil
}

// ScheduleRequest is the availability request sent by the scheduling form.
type ScheduleRequest struct {
	StartDate            string        `json:"start_date" bson:"start_date"`
	EndDate              string        `json:"end_date" bson:"end_date"`
	StartTime            string        `json:"start_time" bson:"start_time"`
	EndTime              string        `json:"end_time" bson:"end_time"`
	SelectedDays         []string      `json:"selected_days,omitempty" bson:"selected_days,omitempty"`
	DurationMinutes      int           `json:"duration_minutes" bson:"duration_minutes"`
	Participants         []Participant `json:"participants" bson:"participants"`
	RequiredParticipants int           `json:"required_participants" bson:"required_participants"`
	TimeZone             string        `json:"timezone_name,omitempty" bson:"timezone_name,omitempty"`
	IntervalMinutes      int           `json:"interval_minutes,omitempty" bson:"interval_minutes,omitempty"`
}

// Emails returns the participants as plain strings.
func (r ScheduleRequest) Emails() []string {
	out := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		out[i] = string(p)
	}
	return out
}

// Query converts the request into an engine query. gridMinutes is used when
// the request does not carry its own interval.
func (r ScheduleRequest) Query(gridMinutes int) (availability.Query, error) {
	q := availability.Query{
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
		Participants:    r.Emails(),
		Required:        r.RequiredParticipants,
		GridMinutes:     gridMinutes,
	}
	if r.IntervalMinutes > 0 {
		q.GridMinutes = r.IntervalMinutes
	}
	for _, d := range r.SelectedDays {
		wd, err := availability.ParseWeekday(d)
		if err != nil {
			return availability.Query{}, err
		}
		q.Weekdays = append(q.Weekdays, wd)
	}
	if err := q.Validate(); err != nil {
		return availability.Query{}, err
	}
	return q, nil
}

// FreeBusyQuery builds the provider request matching the engine query.
func (r ScheduleRequest) FreeBusyQuery(q availability.Query, defaultTimeZone string) (FreeBusyQuery, error) {
	start, err := availability.ParseDate(r.StartDate)
	if err != nil {
		return FreeBusyQuery{}, err
	}
	end, err := availability.ParseDate(r.EndDate)
	if err != nil {
		return FreeBusyQuery{}, err
	}
	tz := r.TimeZone
	if tz == "" {
		tz = defaultTimeZone
	}
	return FreeBusyQuery{
		Participants: q.Participants,
		StartDate:    start,
		EndDate:      end,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		TimeZone:     tz,
		GridMinutes:  q.GridMinutes,
	}, nil
}

// AvailabilityResponse is returned by the availability endpoint.
type AvailabilityResponse struct {
	CommonAvailability [][2]string         `json:"common_availability"`
	SlotAttendeesMap   map[string][]string `json:"slot_attendees_map"`
}

// Location resolves a time zone name, falling back to UTC for unknown names.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
