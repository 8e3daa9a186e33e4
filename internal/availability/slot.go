package availability

import (
	"math"
	"strconv"
)

// Slot is a half-open interval of fractional hours on a single reference date.
// Hours of 24 and above fall on the following day.
type Slot struct {
	Start float64
	End   float64
}

// Length returns the slot length in hours.
func (s Slot) Length() float64 {
	return s.End - s.Start
}

// Covers reports whether s contains o entirely, within Epsilon.
func (s Slot) Covers(o Slot) bool {
	return s.Start-Epsilon <= o.Start && o.End <= s.End+Epsilon
}

// String renders the slot as "start - end".
func (s Slot) String() string {
	return strconv.FormatFloat(s.Start, 'f', -1, 64) + " - " + strconv.FormatFloat(s.End, 'f', -1, 64)
}

// slotKey identifies a slot to the second so that windows computed along
// different arithmetic paths compare equal.
type slotKey struct {
	start int64
	end   int64
}

func (s Slot) key() slotKey {
	return slotKey{start: toSeconds(s.Start), end: toSeconds(s.End)}
}

func toSeconds(h float64) int64 {
	return int64(math.Round(h * 3600))
}
