package schedule

import "fmt"

// Break is a named exclusion window inside working hours, e.g. lunch.
// Disabled breaks keep their times so a practitioner can re-enable one
// without re-entering them.
type Break struct {
	Name    string    `json:"name"`
	Enabled bool      `json:"enabled"`
	Start   TimeOfDay `json:"start"`
	End     TimeOfDay `json:"end"`
}

func (b Break) validate() error {
	if b.Name == "" {
		return fmt.Errorf("break name is required")
	}
	if b.Enabled && b.Start >= b.End {
		return fmt.Errorf("break %q: start must precede end", b.Name)
	}
	return nil
}

// BreakSet is a day's breaks. Disabled entries are inert for slot
// generation but survive edits.
type BreakSet []Break

// Covers reports whether t falls inside any enabled break.
func (bs BreakSet) Covers(t TimeOfDay) bool {
	for _, b := range bs {
		if b.Enabled && (Interval{Start: b.Start, End: b.End}).Contains(t) {
			return true
		}
	}
	return false
}

// Intersects reports whether iv overlaps any enabled break.
func (bs BreakSet) Intersects(iv Interval) bool {
	for _, b := range bs {
		if b.Enabled && iv.Overlaps(Interval{Start: b.Start, End: b.End}) {
			return true
		}
	}
	return false
}

func (bs BreakSet) clone() BreakSet {
	if bs == nil {
		return nil
	}
	out := make(BreakSet, len(bs))
	copy(out, bs)
	return out
}
