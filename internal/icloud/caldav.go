package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"schedcal/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "schedcal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient writes interview events to a single CalDAV calendar (iCloud).
// Event ids are iCalendar UIDs; every event lives at <calendar>/<uid>.ics.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient creates and initializes a new CalDAVClient for iCloud.
func NewClient(ctx context.Context, logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	c, err := newClient(&http.Client{Transport: transport}, iCloudCalDAVEndpoint, "", logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found iCloud calendar", "path", calendarPath)

	return c, nil
}

func newClient(httpClient webdav.HTTPClient, endpoint, calendarPath string, logger *slog.Logger) (*CalDAVClient, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		calendarPath: calendarPath,
	}, nil
}

// CreateEvent stores ev in the calendar. The owner is recorded as organizer
// when the event does not name one.
func (c *CalDAVClient) CreateEvent(ctx context.Context, owner string, ev models.Event) (models.Event, error) {
	if ev.UID == "" {
		ev.UID = GenerateUID()
	}
	if ev.Organizer == "" {
		ev.Organizer = owner
	}
	c.logger.Debug("Creating CalDAV event", "eventTitle", ev.Title, "uid", ev.UID)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//schedcal//EN")
	cal.Children = append(cal.Children, toICal(ev))

	writer, err := c.webdavClient.Create(ctx, c.eventPath(ev.UID))
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return models.Event{}, fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return models.Event{}, fmt.Errorf("failed to upload event: %w", err)
	}

	ev.ID = ev.UID
	c.logger.Info("Successfully created CalDAV event", "eventTitle", ev.Title, "uid", ev.UID)
	return ev, nil
}

// UpdateEventTime rewrites the start and end of a stored event.
func (c *CalDAVClient) UpdateEventTime(ctx context.Context, _ string, eventID string, start, end time.Time, timeZone string) error {
	p := c.eventPath(eventID)
	obj, err := c.caldavClient.GetCalendarObject(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to fetch event %s: %w", eventID, err)
	}

	events := obj.Data.Events()
	if len(events) == 0 {
		return fmt.Errorf("calendar object %s holds no event", eventID)
	}
	loc := models.Location(timeZone)
	for _, ve := range events {
		ve.Props.SetDateTime(ical.PropDateTimeStart, localClock(start, loc))
		ve.Props.SetDateTime(ical.PropDateTimeEnd, localClock(end, loc))
		ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	}

	if _, err := c.caldavClient.PutCalendarObject(ctx, p, obj.Data); err != nil {
		return fmt.Errorf("failed to update event %s: %w", eventID, err)
	}
	c.logger.Info("Moved CalDAV event", "uid", eventID, "start", start)
	return nil
}

// DeleteEvent removes a stored event.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, _ string, eventID string) error {
	if err := c.webdavClient.RemoveAll(ctx, c.eventPath(eventID)); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	c.logger.Info("Deleted CalDAV event", "uid", eventID)
	return nil
}

func (c *CalDAVClient) eventPath(uid string) string {
	return path.Join(c.calendarPath, uid+".ics")
}

// toICal converts an internal Event model to an ical.Component (VEvent).
func toICal(event models.Event) *ical.Component {
	loc := models.Location(event.TimeZone)
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, localClock(event.StartTime, loc))
	ve.Props.SetDateTime(ical.PropDateTimeEnd, localClock(event.EndTime, loc))

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", event.Organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// localClock reads the clock value of t as a time in loc.
func localClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
