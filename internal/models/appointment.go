package models

import "time"

// AppointmentRequest books one of a form's candidates.
type AppointmentRequest struct {
	FormID             string        `json:"form_id"`
	SelectedCandidate  string        `json:"selected_candidate"` // "start,end" or "none"
	Participants       []Participant `json:"participants"`
	CandidateLastName  string        `json:"candidate_last_name"`
	CandidateFirstName string        `json:"candidate_first_name"`
	Company            string        `json:"company"`
	CandidateEmail     string        `json:"candidate_email"`
	CandidateID        *int64        `json:"candidate_id,omitempty"`
	InterviewStage     string        `json:"interview_stage"`
	University         string        `json:"university,omitempty"`
}

// CandidateName returns "Last First" as shown in subjects and mails.
func (r AppointmentRequest) CandidateName() string {
	switch {
	case r.CandidateLastName == "":
		return r.CandidateFirstName
	case r.CandidateFirstName == "":
		return r.CandidateLastName
	}
	return r.CandidateLastName + " " + r.CandidateFirstName
}

// AppointmentResponse describes the events created for a booking.
type AppointmentResponse struct {
	Message      string   `json:"message"`
	Subjects     []string `json:"subjects,omitempty"`
	MeetingURLs  []string `json:"meeting_urls,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// RescheduleRequest releases a booking, optionally moving it to a new candidate.
type RescheduleRequest struct {
	FormID            string `json:"form_id"`
	SelectedCandidate string `json:"selected_candidate,omitempty"`
}

// RescheduleResponse is returned by the reschedule endpoint.
type RescheduleResponse struct {
	Message string   `json:"message"`
	Moved   int      `json:"moved,omitempty"`
	Deleted int      `json:"deleted,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Appointment is one row of the appointments table.
type Appointment struct {
	ID             int64
	FormID         string
	CandidateName  string
	CandidateEmail string
	CandidateID    *int64
	Company        string
	University     string
	InterviewStage string
	StartTime      time.Time
	EndTime        time.Time
	Participants   []string
	CreatedAt      time.Time
}

// Employee is an entry of the employee directory.
type Employee struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Title string `json:"title,omitempty"`
}
