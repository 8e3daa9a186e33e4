package availability

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// ISOLayout is the naive local datetime layout used for every window that
	// leaves the engine.
	ISOLayout = "2006-01-02T15:04:05"
	// DateLayout is the calendar date layout used for request dates and FreeBusy keys.
	DateLayout = "2006-01-02"

	// Epsilon is the tolerance, in hours, applied when comparing slot boundaries.
	// It is well below half of the smallest provider grid (30 minutes).
	Epsilon = 1e-2
)

// Layouts accepted by ParseISO, most specific first.
var isoLayouts = []string{
	ISOLayout,
	time.RFC3339,
	"2006-01-02T15:04",
}

// TimeToFloat converts an "HH:MM" clock string into fractional hours.
func TimeToFloat(s string) (float64, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: time %q is not in HH:MM form", ErrFormat, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q has a non-numeric hour", ErrFormat, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q has a non-numeric minute", ErrFormat, s)
	}
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("%w: time %q is out of range", ErrFormat, s)
	}
	return float64(hour) + float64(minute)/60, nil
}

// FloatToDateTime returns the clock time h hours after midnight of date.
// Values of 24 and above roll over into the following days; the minute is
// rounded to the nearest integer.
func FloatToDateTime(date time.Time, h float64) time.Time {
	days := math.Floor(h / 24)
	rem := h - days*24
	hour := math.Floor(rem)
	minute := math.Round((rem - hour) * 60)
	y, m, d := date.Date()
	// time.Date normalizes a rounded minute of 60 into the next hour.
	return time.Date(y, m, d+int(days), int(hour), int(minute), 0, 0, date.Location())
}

// ParseSlotString parses a "start - end" slot string such as "9.0 - 10.5".
func ParseSlotString(s string) (Slot, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("%w: slot %q is not in \"start - end\" form", ErrFormat, s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: slot %q has a non-numeric start", ErrFormat, s)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: slot %q has a non-numeric end", ErrFormat, s)
	}
	if end <= start {
		return Slot{}, fmt.Errorf("%w: slot %q does not end after it starts", ErrFormat, s)
	}
	return Slot{Start: start, End: end}, nil
}

// SlotToISO converts a slot on date into a pair of ISO datetimes.
func SlotToISO(date time.Time, slot Slot) (string, string) {
	return FormatISO(FloatToDateTime(date, slot.Start)), FormatISO(FloatToDateTime(date, slot.End))
}

// FormatISO formats t as a naive local ISO-8601 datetime.
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// ParseISO parses an ISO-8601 datetime. An explicit offset is accepted but the
// clock value is kept as is.
func ParseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: datetime %q is not ISO-8601", ErrFormat, s)
}

// ParseDate parses a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrFormat, s)
	}
	return t, nil
}

// Dates returns every calendar date from start to end inclusive. An end before
// start yields no dates.
func Dates(start, end time.Time) []time.Time {
	y, m, d := start.Date()
	first := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	y, m, d = end.Date()
	last := time.Date(y, m, d, 0, 0, 0, 0, start.Location())

	var dates []time.Time
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day)
	}
	return dates
}

// DayWindow parses the daily window bounds. An end at or before the start
// wraps past midnight, so "22:00"-"02:00" becomes 22 to 26.
func DayWindow(startTime, endTime string) (float64, float64, error) {
	start, err := TimeToFloat(startTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := TimeToFloat(endTime)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		end += 24
	}
	return start, end, nil
}

// ParseCandidate splits a "start, end" candidate string into its two datetimes.
func ParseCandidate(s string) ([2]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]string{}, fmt.Errorf("%w: candidate %q is not in \"start, end\" form", ErrFormat, s)
	}
	start, err := ParseISO(parts[0])
	if err != nil {
		return [2]string{}, err
	}
	end, err := ParseISO(parts[1])
	if err != nil {
		return [2]string{}, err
	}
	if !end.After(start) {
		return [2]string{}, fmt.Errorf("%w: candidate %q does not end after it starts", ErrFormat, s)
	}
	return [2]string{FormatISO(start), FormatISO(end)}, nil
}
