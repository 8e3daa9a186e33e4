package graph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"
)

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

type location struct {
	DisplayName string `json:"displayName"`
}

type event struct {
	ID                    string            `json:"id,omitempty"`
	ICalUID               string            `json:"iCalUId,omitempty"`
	Subject               string            `json:"subject,omitempty"`
	Body                  *itemBody         `json:"body,omitempty"`
	Start                 *dateTimeTimeZone `json:"start,omitempty"`
	End                   *dateTimeTimeZone `json:"end,omitempty"`
	Location              *location         `json:"location,omitempty"`
	Attendees             []attendee        `json:"attendees,omitempty"`
	IsOnlineMeeting       bool              `json:"isOnlineMeeting,omitempty"`
	OnlineMeetingProvider string            `json:"onlineMeetingProvider,omitempty"`
	OnlineMeeting         *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting,omitempty"`
}

// CreateEvent creates ev in the owner's mailbox. Online events get a Teams link.
func (c *Client) CreateEvent(ctx context.Context, owner string, ev models.Event) (models.Event, error) {
	body := event{
		Subject: ev.Title,
		Body:    &itemBody{ContentType: "HTML", Content: ev.Description},
		Start:   graphTime(ev.StartTime, ev.TimeZone),
		End:     graphTime(ev.EndTime, ev.TimeZone),
	}
	if ev.Location != "" {
		body.Location = &location{DisplayName: ev.Location}
	}
	for _, a := range ev.Attendees {
		body.Attendees = append(body.Attendees, attendee{EmailAddress: emailAddress{Address: a}, Type: "required"})
	}
	if ev.Online {
		body.IsOnlineMeeting = true
		body.OnlineMeetingProvider = "teamsForBusiness"
	}

	var created event
	if err := c.do(ctx, http.MethodPost, userPath(owner, "events"), body, &created); err != nil {
		return models.Event{}, fmt.Errorf("failed to create event for %s: %w", owner, err)
	}
	ev.ID = created.ID
	ev.UID = created.ICalUID
	ev.Organizer = owner
	if created.OnlineMeeting != nil {
		ev.JoinURL = created.OnlineMeeting.JoinURL
	}
	c.logger.Info("Successfully created Graph event", "owner", owner, "eventID", ev.ID)
	return ev, nil
}

// UpdateEventTime moves an event in the owner's mailbox.
func (c *Client) UpdateEventTime(ctx context.Context, owner, eventID string, start, end time.Time, timeZone string) error {
	patch := event{Start: graphTime(start, timeZone), End: graphTime(end, timeZone)}
	if err := c.do(ctx, http.MethodPatch, userPath(owner, "events", eventID), patch, nil); err != nil {
		return fmt.Errorf("failed to move event %s for %s: %w", eventID, owner, err)
	}
	return nil
}

// DeleteEvent deletes an event. Events that are already gone are not an error.
func (c *Client) DeleteEvent(ctx context.Context, owner, eventID string) error {
	err := c.do(ctx, http.MethodDelete, userPath(owner, "events", eventID), nil, nil)
	if isNotFound(err) {
		c.logger.Warn("Event already deleted", "owner", owner, "eventID", eventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete event %s for %s: %w", eventID, owner, err)
	}
	return nil
}

func graphTime(t time.Time, timeZone string) *dateTimeTimeZone {
	if timeZone == "" {
		timeZone = "UTC"
	}
	return &dateTimeTimeZone{DateTime: availability.FormatISO(t), TimeZone: timeZone}
}
