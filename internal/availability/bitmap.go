package availability

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Free is the bitmap flag for a free grid cell. Any other flag is treated as
// busy, tentative or unknown.
const (
	Free = '0'
	Busy = '2'
)

// Interval is an absolute busy period reported by a calendar provider.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Cells returns how many grid cells a bitmap for the window [start, end) holds.
// A trailing partial cell counts as a cell.
func Cells(start, end, grid float64) int {
	if grid <= 0 || end <= start {
		return 0
	}
	return int(math.Ceil((end-start)/grid - 1e-9))
}

// BitmapSlots converts one participant's bitmap for one day into free slots.
// Cell i covers [start+i*grid, start+(i+1)*grid); cells running past end are
// discarded. The bitmap must hold exactly one flag per cell.
func BitmapSlots(bitmap string, start, end, grid float64) ([]Slot, error) {
	if grid <= 0 {
		return nil, fmt.Errorf("%w: grid size must be positive", ErrConfiguration)
	}
	want := Cells(start, end, grid)
	if len(bitmap) != want {
		return nil, fmt.Errorf("%w: bitmap has %d cells, window %s needs %d",
			ErrDataShape, len(bitmap), Slot{Start: start, End: end}, want)
	}

	var free []Slot
	for i := 0; i < len(bitmap); i++ {
		if bitmap[i] != Free {
			continue
		}
		s := start + float64(i)*grid
		e := s + grid
		if e > end+Epsilon {
			continue
		}
		free = append(free, Slot{Start: s, End: e})
	}
	return free, nil
}

// Rasterize renders busy intervals as a bitmap over the daily window on date.
// A cell is busy when any interval overlaps it.
func Rasterize(date time.Time, start, end, grid float64, busy []Interval) string {
	n := Cells(start, end, grid)
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		cellStart := FloatToDateTime(date, start+float64(i)*grid)
		cellEnd := FloatToDateTime(date, math.Min(start+float64(i+1)*grid, end))
		if overlapsAny(cellStart, cellEnd, busy) {
			b.WriteByte(Busy)
		} else {
			b.WriteByte(Free)
		}
	}
	return b.String()
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, iv := range busy {
		if iv.Start.Before(end) && start.Before(iv.End) {
			return true
		}
	}
	return false
}
