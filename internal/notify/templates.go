// Package notify renders and delivers the mails sent when an interview is
// booked or cannot be booked.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"schedcal/internal/models"
)

var (
	interviewerTmpl = template.Must(template.New("interviewer").Parse(
		`<p>The interview has been scheduled.</p>
<p>Name<br>{{.Name}}</p>
<p>Company<br>{{.Company}}</p>
<p>Email<br>{{.Email}}</p>
<p>Date<br>{{.When}}</p>
{{if .MeetingURL}}<p>Meeting URL<br><a href="{{.MeetingURL}}">{{.MeetingURL}}</a></p>{{end}}`))

	candidateTmpl = template.Must(template.New("candidate").Parse(
		`<p>Dear {{.Name}},</p>
<p>Thank you for arranging your interview. Your details and meeting link are below.</p>
<p>Name<br>{{.Name}}</p>
<p>Company<br>{{.Company}}</p>
<p>Email<br>{{.Email}}</p>
<p>Date<br>{{.When}}</p>
{{if .MeetingURL}}<p>Meeting URL<br><a href="{{.MeetingURL}}">{{.MeetingURL}}</a></p>{{end}}
<p>If you need to change the date, please use this link:<br><a href="{{.RescheduleURL}}">{{.RescheduleURL}}</a><br>
The original appointment is removed automatically once you reschedule.</p>
<p>We look forward to speaking with you.</p>`))

	noAvailabilityTmpl = template.Must(template.New("none").Parse(
		`<p>The candidate below answered the scheduling form but none of the proposed dates work.</p>
<p>Name<br>{{.Name}}</p>
<p>Company<br>{{.Company}}</p>
<p>Email<br>{{.Email}}</p>
<p>Please propose other dates or contact the candidate directly.</p>
<p>This mail was sent automatically.</p>`))
)

type mailData struct {
	Name          string
	Company       string
	Email         string
	When          string
	MeetingURL    string
	RescheduleURL string
}

func data(req models.AppointmentRequest) mailData {
	return mailData{Name: req.CandidateName(), Company: req.Company, Email: req.CandidateEmail}
}

func subject(req models.AppointmentRequest, what string) string {
	return headerValue(fmt.Sprintf("[%s / %s] %s", req.Company, req.CandidateName(), what))
}

// InterviewerConfirmation is sent to every interviewer once a slot is booked.
func InterviewerConfirmation(from string, to []string, req models.AppointmentRequest, start, end time.Time, meetingURL string) (models.Mail, error) {
	d := data(req)
	d.When = FormatCandidate(start, end)
	d.MeetingURL = meetingURL
	return render(interviewerTmpl, d, models.Mail{From: from, To: to, Subject: subject(req, "Interview scheduled")})
}

// CandidateConfirmation is sent to the candidate with a reschedule link.
func CandidateConfirmation(from string, req models.AppointmentRequest, start, end time.Time, meetingURL, rescheduleURL string) (models.Mail, error) {
	d := data(req)
	d.When = FormatCandidate(start, end)
	d.MeetingURL = meetingURL
	d.RescheduleURL = rescheduleURL
	return render(candidateTmpl, d, models.Mail{From: from, To: []string{req.CandidateEmail}, Subject: "Your interview is scheduled"})
}

// NoAvailability tells the interviewers that the candidate could not take any
// of the proposed dates.
func NoAvailability(from string, to []string, req models.AppointmentRequest) (models.Mail, error) {
	return render(noAvailabilityTmpl, data(req), models.Mail{From: from, To: to, Subject: subject(req, "No suitable date")})
}

func render(t *template.Template, d mailData, m models.Mail) (models.Mail, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return models.Mail{}, fmt.Errorf("failed to render %s mail: %w", t.Name(), err)
	}
	m.HTML = buf.String()
	return m, nil
}

// FormatCandidate renders a slot as "1/10 (Fri) 10:00~11:00".
func FormatCandidate(start, end time.Time) string {
	return fmt.Sprintf("%d/%d (%s) %s~%s",
		int(start.Month()), start.Day(), start.Weekday().String()[:3],
		start.Format("15:04"), end.Format("15:04"))
}
