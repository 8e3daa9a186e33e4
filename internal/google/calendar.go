package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"schedcal/internal/availability"
	"schedcal/internal/models"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"
	defaultGrid     = 30
)

// CalendarClient provides free/busy lookups and interview event management on
// Google Calendar.
type CalendarClient struct {
	service *calendar.Service
	logger  *slog.Logger
	backoff func() retry.Backoff
}

// NewClient creates a new Google Calendar client.
// It handles loading credentials and setting up an authenticated HTTP client.
// The accountName selects the token file written by the auth command (token-<accountName>.json).
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	client := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return newClient(service, logger), nil
}

func newClient(service *calendar.Service, logger *slog.Logger) *CalendarClient {
	return &CalendarClient{
		service: service,
		logger:  logger,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(time.Second))
		},
	}
}

// FetchFreeBusy queries busy periods for every participant over the whole date
// range and renders them as one bitmap per participant per day.
func (c *CalendarClient) FetchFreeBusy(ctx context.Context, q models.FreeBusyQuery) (availability.FreeBusy, error) {
	startHour, endHour, err := availability.DayWindow(q.StartTime, q.EndTime)
	if err != nil {
		return nil, err
	}
	gridMinutes := q.GridMinutes
	if gridMinutes == 0 {
		gridMinutes = defaultGrid
	}
	grid := float64(gridMinutes) / 60
	loc := models.Location(q.TimeZone)

	dates := availability.Dates(inLocation(q.StartDate, loc), inLocation(q.EndDate, loc))
	if len(dates) == 0 {
		return availability.FreeBusy{}, nil
	}
	timeMin := availability.FloatToDateTime(dates[0], startHour)
	timeMax := availability.FloatToDateTime(dates[len(dates)-1], endHour)

	req := &calendar.FreeBusyRequest{
		TimeMin:  timeMin.Format(time.RFC3339),
		TimeMax:  timeMax.Format(time.RFC3339),
		TimeZone: loc.String(),
	}
	for _, p := range q.Participants {
		req.Items = append(req.Items, &calendar.FreeBusyRequestItem{Id: p})
	}

	c.logger.Debug("Querying Google free/busy", "participants", len(q.Participants), "timeMin", req.TimeMin, "timeMax", req.TimeMax)
	var resp *calendar.FreeBusyResponse
	err = c.do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.service.Freebusy.Query(req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	fb := make(availability.FreeBusy, len(q.Participants))
	for _, p := range q.Participants {
		cal, ok := resp.Calendars[p]
		if !ok {
			return nil, fmt.Errorf("free/busy response has no calendar for %s", p)
		}
		if len(cal.Errors) > 0 {
			return nil, fmt.Errorf("free/busy lookup for %s failed: %s", p, cal.Errors[0].Reason)
		}
		busy, err := toIntervals(cal.Busy)
		if err != nil {
			return nil, fmt.Errorf("invalid busy period for %s: %w", p, err)
		}
		days := make(map[string]string, len(dates))
		for _, date := range dates {
			days[date.Format(availability.DateLayout)] = availability.Rasterize(date, startHour, endHour, grid, busy)
		}
		fb[p] = days
	}

	c.logger.Info("Successfully fetched free/busy from Google Calendar", "participants", len(fb), "days", len(dates))
	return fb, nil
}

// CreateEvent inserts ev into the owner's calendar and returns it with the
// provider id and, for online events, the Meet link.
func (c *CalendarClient) CreateEvent(ctx context.Context, owner string, ev models.Event) (models.Event, error) {
	c.logger.Debug("Creating Google event", "owner", owner, "title", ev.Title)

	item := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       eventTime(ev.StartTime, ev.TimeZone),
		End:         eventTime(ev.EndTime, ev.TimeZone),
	}
	for _, a := range ev.Attendees {
		item.Attendees = append(item.Attendees, &calendar.EventAttendee{Email: a})
	}
	if ev.Online {
		item.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}

	var created *calendar.Event
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.service.Events.Insert(calendarID(owner), item).ConferenceDataVersion(1).Context(ctx).Do()
		return err
	})
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to create event for %s: %w", owner, err)
	}

	ev.ID = created.Id
	ev.UID = created.ICalUID
	ev.JoinURL = created.HangoutLink
	c.logger.Info("Successfully created Google event", "owner", owner, "eventID", ev.ID)
	return ev, nil
}

// UpdateEventTime moves an existing event.
func (c *CalendarClient) UpdateEventTime(ctx context.Context, owner, eventID string, start, end time.Time, timeZone string) error {
	patch := &calendar.Event{Start: eventTime(start, timeZone), End: eventTime(end, timeZone)}
	err := c.do(ctx, func(ctx context.Context) error {
		_, err := c.service.Events.Patch(calendarID(owner), eventID, patch).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to move event %s for %s: %w", eventID, owner, err)
	}
	return nil
}

// DeleteEvent removes an event. Events that are already gone are not an error.
func (c *CalendarClient) DeleteEvent(ctx context.Context, owner, eventID string) error {
	err := c.do(ctx, func(ctx context.Context) error {
		return c.service.Events.Delete(calendarID(owner), eventID).Context(ctx).Do()
	})
	if isGone(err) {
		c.logger.Warn("Event already deleted", "owner", owner, "eventID", eventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete event %s for %s: %w", eventID, owner, err)
	}
	return nil
}

// do runs f with retries on rate limiting and server errors.
func (c *CalendarClient) do(ctx context.Context, f func(context.Context) error) error {
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := f(ctx)
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500) {
			c.logger.Warn("Google API call failed, retrying", "status", gerr.Code)
			return retry.RetryableError(err)
		}
		return err
	})
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}

func calendarID(owner string) string {
	if owner == "" {
		return "primary"
	}
	return owner
}

func eventTime(t time.Time, timeZone string) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: availability.FormatISO(t), TimeZone: timeZone}
}

func inLocation(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func toIntervals(periods []*calendar.TimePeriod) ([]availability.Interval, error) {
	out := make([]availability.Interval, 0, len(periods))
	for _, p := range periods {
		start, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return nil, err
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return nil, err
		}
		out = append(out, availability.Interval{Start: start, End: end})
	}
	return out, nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes explicit client credentials over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET or place credentials.json in the working directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the accounts that have a saved token in the working directory.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
