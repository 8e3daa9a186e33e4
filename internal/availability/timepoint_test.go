package availability

import (
	"errors"
	"testing"
	"time"
)

func TestTimeToFloat(t *testing.T) {
	cases := map[string]float64{
		"09:30": 9.5,
		"00:00": 0,
		"17:45": 17.75,
		"24:00": 24,
	}
	for in, want := range cases {
		got, err := TimeToFloat(in)
		if err != nil {
			t.Fatalf("TimeToFloat(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("TimeToFloat(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestTimeToFloatRejectsMalformedInput(t *testing.T) {
	for _, in := range []string{"25", "ab:00", "09:xx", "", "25:00", "12:60", "24:30"} {
		if _, err := TimeToFloat(in); !errors.Is(err, ErrFormat) {
			t.Fatalf("TimeToFloat(%q): expected ErrFormat, got %v", in, err)
		}
	}
}

func TestFloatToDateTime(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		h    float64
		want string
	}{
		{9.5, "2025-01-10T09:30:00"},
		{24, "2025-01-11T00:00:00"},
		{25.5, "2025-01-11T01:30:00"},
		{47.99, "2025-01-11T23:59:00"},
		{48, "2025-01-12T00:00:00"},
		{9.999, "2025-01-10T10:00:00"},
	}
	for _, c := range cases {
		if got := FormatISO(FloatToDateTime(date, c.h)); got != c.want {
			t.Fatalf("FloatToDateTime(%v): expected %s, got %s", c.h, c.want, got)
		}
	}
}

func TestParseSlotString(t *testing.T) {
	s, err := ParseSlotString("9.0 - 10.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != (Slot{Start: 9, End: 10.5}) {
		t.Fatalf("expected 9 - 10.5, got %s", s)
	}
	if s.String() != "9 - 10.5" {
		t.Fatalf("expected round trip string, got %q", s.String())
	}

	for _, in := range []string{"9.0 - 10.5 - 11", "nine - 10", "9 - x", "10 - 9", "9"} {
		if _, err := ParseSlotString(in); !errors.Is(err, ErrFormat) {
			t.Fatalf("ParseSlotString(%q): expected ErrFormat, got %v", in, err)
		}
	}
}

func TestSlotToISO(t *testing.T) {
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	start, end := SlotToISO(date, Slot{Start: 23.5, End: 24.5})
	if start != "2025-01-10T23:30:00" || end != "2025-01-11T00:30:00" {
		t.Fatalf("expected 23:30 to next day 00:30, got %s to %s", start, end)
	}
}

func TestParseISOKeepsClockValue(t *testing.T) {
	for _, in := range []string{"2025-01-10T10:00:00", "2025-01-10T10:00:00+09:00", "2025-01-10T10:00"} {
		got, err := ParseISO(in)
		if err != nil {
			t.Fatalf("ParseISO(%q): unexpected error %v", in, err)
		}
		if FormatISO(got) != "2025-01-10T10:00:00" {
			t.Fatalf("ParseISO(%q): expected 10:00 clock value, got %s", in, FormatISO(got))
		}
	}
	if _, err := ParseISO("10/01/2025 10:00"); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestDates(t *testing.T) {
	start := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	got := Dates(start, end)
	if len(got) != 4 {
		t.Fatalf("expected 4 dates, got %d", len(got))
	}
	if got[3].Format(DateLayout) != "2025-02-02" {
		t.Fatalf("expected last date 2025-02-02, got %s", got[3].Format(DateLayout))
	}
	if len(Dates(end, start)) != 0 {
		t.Fatal("expected no dates for a reversed range")
	}
}

func TestDayWindowWrapsPastMidnight(t *testing.T) {
	start, end, err := DayWindow("22:00", "02:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 22 || end != 26 {
		t.Fatalf("expected 22 to 26, got %v to %v", start, end)
	}
}

func TestParseCandidate(t *testing.T) {
	got, err := ParseCandidate("2025-01-10T10:00:00, 2025-01-10T11:00:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != [2]string{"2025-01-10T10:00:00", "2025-01-10T11:00:00"} {
		t.Fatalf("unexpected candidate %v", got)
	}
	if _, err := ParseCandidate("2025-01-10T11:00:00,2025-01-10T10:00:00"); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for a reversed candidate, got %v", err)
	}
}
