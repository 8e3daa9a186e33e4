package models

import "time"

// Event represents an interview on a calendar.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Provider event id, empty until the event is created
	Title       string    // Summary or title of the event
	Description string    // HTML body of the event
	StartTime   time.Time // Start time of the event, a naive clock value
	EndTime     time.Time // End time of the event, a naive clock value
	TimeZone    string    // IANA or provider zone name the clock values belong to
	Location    string    // Location of the event
	Organizer   string    // Mailbox the event is created in
	Attendees   []string  // List of attendee emails
	Online      bool      // Request an online meeting link from the provider
	JoinURL     string    // Online meeting link returned by the provider
	UID         string    // The iCalendar UID, used by CalDAV
}

// EventRef ties a created event to the interviewer whose calendar holds it.
type EventRef struct {
	Participant string `json:"participant" bson:"participant"`
	EventID     string `json:"event_id" bson:"event_id"`
}

// FreeBusyQuery asks a calendar provider for per-day bitmaps.
type FreeBusyQuery struct {
	Participants []string
	StartDate    time.Time
	EndDate      time.Time
	StartTime    string // "HH:MM"
	EndTime      string // "HH:MM", at or before StartTime wraps past midnight
	TimeZone     string
	GridMinutes  int
}

// Mail is an outgoing HTML message.
type Mail struct {
	From    string
	To      []string
	Subject string
	HTML    string
}
