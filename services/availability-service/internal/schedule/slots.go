package schedule

// Slot is one bookable interval of fixed duration.
type Slot struct {
	Start           TimeOfDay `json:"start"`
	End             TimeOfDay `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
}

// Generate expands working hours into consecutive candidate slots of
// durationMinutes, skipping any candidate that touches an enabled
// break. The cursor always advances one full stride, even across a
// skipped candidate, so a break shorter than the stride still costs a
// whole slot. Output is ascending by start and deterministic.
//
// Inverted or empty hours yield an empty schedule, not an error; that
// is how a day with hours not yet configured looks.
func Generate(hours Interval, durationMinutes int, breaks BreakSet) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if hours.Start >= hours.End {
		return []Slot{}, nil
	}

	slots := []Slot{}
	for cursor := hours.Start; cursor < hours.End; {
		candidateEnd, err := cursor.AddMinutes(durationMinutes)
		if err != nil {
			// Ran past 23:59; nothing further can fit.
			break
		}
		if candidateEnd > hours.End {
			break
		}
		if !breaks.Covers(cursor) && !breaks.Intersects(Interval{Start: cursor, End: candidateEnd}) {
			slots = append(slots, Slot{
				Start:           cursor,
				End:             candidateEnd,
				DurationMinutes: durationMinutes,
				Capacity:        1,
			})
		}
		cursor = candidateEnd
	}
	return slots, nil
}
