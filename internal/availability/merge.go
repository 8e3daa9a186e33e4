package availability

import (
	"math"
	"sort"
)

// Grid fixes where candidate windows may start: Origin + k*Step for integer k.
// Origin is normally the start of the daily window and Step the provider's
// bitmap granularity. A zero Step anchors windows at the start of each run and
// advances them by the meeting duration instead.
type Grid struct {
	Origin float64
	Step   float64
}

// Merge joins touching or overlapping slots into maximal contiguous runs,
// sorted by start. Two slots touch when the gap between them is below Epsilon.
func Merge(slots []Slot) []Slot {
	if len(slots) == 0 {
		return nil
	}
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sortSlots(sorted)

	runs := []Slot{sorted[0]}
	for _, s := range sorted[1:] {
		last := &runs[len(runs)-1]
		if s.Start <= last.End+Epsilon {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		runs = append(runs, s)
	}
	return runs
}

// Cut slices each run into windows exactly duration hours long. Windows start
// on the grid and must fit inside their run; the result is sorted and free of
// duplicates. A duration that is not a multiple of the grid step refines the
// grid to the greatest common divisor of both, in whole minutes.
func Cut(runs []Slot, duration float64, g Grid) []Slot {
	if duration <= 0 {
		return nil
	}
	seen := make(map[slotKey]bool)
	var out []Slot
	for _, run := range runs {
		first, step := run.Start, duration
		if g.Step > 0 {
			step = g.stride(duration)
			k := math.Ceil((run.Start - g.Origin - Epsilon) / step)
			first = g.Origin + k*step
		}
		for i := 0; ; i++ {
			start := first + float64(i)*step
			end := start + duration
			if end > run.End+Epsilon {
				break
			}
			w := Slot{Start: start, End: end}
			if seen[w.key()] {
				continue
			}
			seen[w.key()] = true
			out = append(out, w)
		}
	}
	sortSlots(out)
	return out
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})
}

func coveredBy(runs []Slot, w Slot) bool {
	for _, r := range runs {
		if r.Covers(w) {
			return true
		}
	}
	return false
}

// stride is the distance between window starts: the gcd of the grid step and
// the duration in minutes, falling back to Step when either is below a minute.
func (g Grid) stride(duration float64) float64 {
	a, b := int64(math.Round(g.Step*60)), int64(math.Round(duration*60))
	if a <= 0 || b <= 0 {
		return g.Step
	}
	for b != 0 {
		a, b = b, a%b
	}
	return float64(a) / 60
}
