package availability

import (
	"fmt"
	"strings"
	"time"
)

// FreeBusy holds provider bitmaps keyed by participant and then by date
// ("YYYY-MM-DD").
type FreeBusy map[string]map[string]string

// Query describes one availability computation. Times are naive clock values
// in the request's time zone.
type Query struct {
	StartDate       string
	EndDate         string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Participants    []string
	Required        int
	// Weekdays restricts the computation to these days when non-empty.
	Weekdays []time.Weekday
	// GridMinutes is the bitmap granularity. Zero infers it from the bitmap
	// length and the daily window.
	GridMinutes int
}

// Result is the outcome of Calculate.
type Result struct {
	// CommonAvailability lists [start, end] ISO pairs in ascending order.
	CommonAvailability [][2]string
	// SlotAttendees maps "start/end" to the participants free for the window.
	SlotAttendees map[string][]string
}

// Validate checks the query without looking at any free/busy data.
func (q Query) Validate() error {
	if len(q.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrConfiguration)
	}
	seen := make(map[string]bool, len(q.Participants))
	for _, p := range q.Participants {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: participant identifier is empty", ErrConfiguration)
		}
		if seen[p] {
			return fmt.Errorf("%w: participant %q is listed twice", ErrConfiguration, p)
		}
		seen[p] = true
	}
	if q.Required < 1 || q.Required > len(q.Participants) {
		return fmt.Errorf("%w: required participants must be between 1 and %d, got %d",
			ErrConfiguration, len(q.Participants), q.Required)
	}
	if q.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d minutes", ErrConfiguration, q.DurationMinutes)
	}
	if q.GridMinutes < 0 {
		return fmt.Errorf("%w: grid must not be negative, got %d minutes", ErrConfiguration, q.GridMinutes)
	}
	if _, err := ParseDate(q.StartDate); err != nil {
		return err
	}
	if _, err := ParseDate(q.EndDate); err != nil {
		return err
	}
	if _, _, err := DayWindow(q.StartTime, q.EndTime); err != nil {
		return err
	}
	return nil
}

// Key formats the attendee map key of an ISO pair.
func Key(start, end string) string {
	return start + "/" + end
}

// Calculate finds every common window across the query's date range. Each
// selected date needs a bitmap for every participant; missing or mis-sized
// bitmaps fail the whole computation with ErrDataShape. An end date before the
// start date yields an empty result.
func Calculate(q Query, fb FreeBusy) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	first, _ := ParseDate(q.StartDate)
	last, _ := ParseDate(q.EndDate)
	startHour, endHour, _ := DayWindow(q.StartTime, q.EndTime)
	duration := float64(q.DurationMinutes) / 60

	res := &Result{
		CommonAvailability: [][2]string{},
		SlotAttendees:      make(map[string][]string),
	}
	for _, date := range Dates(first, last) {
		if !q.selects(date.Weekday()) {
			continue
		}
		day, grid, err := q.day(fb, date, startHour, endHour)
		if err != nil {
			return nil, err
		}

		g := Grid{Origin: startHour, Step: grid}
		var windows []Window
		if q.Required == len(q.Participants) {
			windows = IntersectAll(day, duration, g)
		} else {
			windows = FindCommon(day, q.Required, duration, g)
		}

		for _, w := range windows {
			start, end := SlotToISO(date, w.Slot)
			res.CommonAvailability = append(res.CommonAvailability, [2]string{start, end})
			res.SlotAttendees[Key(start, end)] = w.Attendees
		}
	}
	return res, nil
}

// day assembles every participant's free slots for date and returns the grid
// size in hours.
func (q Query) day(fb FreeBusy, date time.Time, startHour, endHour float64) ([]Availability, float64, error) {
	key := date.Format(DateLayout)
	grid := float64(q.GridMinutes) / 60

	day := make([]Availability, 0, len(q.Participants))
	for _, p := range q.Participants {
		bitmap, ok := fb[p][key]
		if !ok {
			return nil, 0, fmt.Errorf("%w: no free/busy data for %s on %s", ErrDataShape, p, key)
		}
		if grid == 0 {
			if bitmap == "" {
				return nil, 0, fmt.Errorf("%w: empty bitmap for %s on %s", ErrDataShape, p, key)
			}
			grid = (endHour - startHour) / float64(len(bitmap))
		}
		free, err := BitmapSlots(bitmap, startHour, endHour, grid)
		if err != nil {
			return nil, 0, fmt.Errorf("%s on %s: %w", p, key, err)
		}
		day = append(day, Availability{Participant: p, Free: free})
	}
	return day, grid, nil
}

func (q Query) selects(d time.Weekday) bool {
	if len(q.Weekdays) == 0 {
		return true
	}
	for _, w := range q.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday accepts a weekday name or its three-letter abbreviation, in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		if d, ok := weekdays[name[:3]]; ok && strings.HasPrefix(strings.ToLower(d.String()), name) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: weekday %q is not recognised", ErrFormat, s)
}
