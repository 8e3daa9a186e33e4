package availability

// Availability is one participant's free time on a single day.
type Availability struct {
	Participant string
	Free        []Slot
}

// Window is a candidate meeting slot together with everyone free for all of it.
type Window struct {
	Slot
	Attendees []string
}

// FindCommon returns every window of the given duration (in hours) in which at
// least required participants are free for the whole window. Attendees are
// listed in the order participants appear in day.
func FindCommon(day []Availability, required int, duration float64, g Grid) []Window {
	if len(day) == 0 || required <= 0 || duration <= 0 {
		return nil
	}

	runs := make([][]Slot, len(day))
	covering := make(map[slotKey]map[string]struct{})
	slots := make(map[slotKey]Slot)
	for i, p := range day {
		runs[i] = Merge(p.Free)
		for _, sub := range Cut(runs[i], duration, g) {
			k := sub.key()
			if covering[k] == nil {
				covering[k] = make(map[string]struct{})
				slots[k] = sub
			}
			covering[k][p.Participant] = struct{}{}
		}
	}

	var qualified []Slot
	for k, who := range covering {
		if len(who) >= required {
			qualified = append(qualified, slots[k])
		}
	}

	// Qualifying pieces may abut without any one participant spanning the join,
	// so every re-cut window is checked against the participants' own runs.
	var windows []Window
	for _, w := range Cut(Merge(qualified), duration, g) {
		attendees := attendeesOf(day, runs, w)
		if len(attendees) < required {
			continue
		}
		windows = append(windows, Window{Slot: w, Attendees: attendees})
	}
	return windows
}

// IntersectAll is the all-required strategy: it intersects every participant's
// free runs and cuts the intersection into windows. For a quorum equal to the
// number of distinct participants it returns the same windows as FindCommon.
func IntersectAll(day []Availability, duration float64, g Grid) []Window {
	if len(day) == 0 || duration <= 0 {
		return nil
	}
	common := Merge(day[0].Free)
	for _, p := range day[1:] {
		common = intersect(common, Merge(p.Free))
	}

	var attendees []string
	seen := make(map[string]bool)
	for _, p := range day {
		if !seen[p.Participant] {
			seen[p.Participant] = true
			attendees = append(attendees, p.Participant)
		}
	}

	var windows []Window
	for _, w := range Cut(common, duration, g) {
		windows = append(windows, Window{Slot: w, Attendees: append([]string(nil), attendees...)})
	}
	return windows
}

func attendeesOf(day []Availability, runs [][]Slot, w Slot) []string {
	var attendees []string
	seen := make(map[string]bool)
	for i, p := range day {
		if seen[p.Participant] || !coveredBy(runs[i], w) {
			continue
		}
		seen[p.Participant] = true
		attendees = append(attendees, p.Participant)
	}
	return attendees
}

// intersect returns the overlap of two sorted, merged run lists.
func intersect(a, b []Slot) []Slot {
	var out []Slot
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max(a[i].Start, b[j].Start)
		hi := min(a[i].End, b[j].End)
		if lo < hi {
			out = append(out, Slot{Start: lo, End: hi})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}
