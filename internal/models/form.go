package models

import "time"

// FormData is the persisted state of one scheduling form: the request that
// produced it, the proposed candidates and, once booked, the confirmation.
type FormData struct {
	ID              string `json:"id,omitempty" bson:"_id"`
	ScheduleRequest `bson:",inline"`

	Candidates        [][2]string         `json:"schedule_interview_datetimes" bson:"schedule_interview_datetimes"`
	SlotAttendeesMap  map[string][]string `json:"slot_attendees_map,omitempty" bson:"slot_attendees_map,omitempty"`
	IsConfirmed       bool                `json:"is_confirmed" bson:"is_confirmed"`
	SelectedCandidate []string            `json:"selected_candidate,omitempty" bson:"selected_candidate,omitempty"`
	EventIDs          []EventRef          `json:"event_ids,omitempty" bson:"event_ids,omitempty"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}

// Confirmation is written to a form when a candidate is booked.
type Confirmation struct {
	SelectedCandidate [2]string
	EventIDs          []EventRef
}
