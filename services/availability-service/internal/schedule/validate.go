package schedule

import "fmt"

// Validate enforces the structural invariants a template must satisfy
// before it may be persisted. It never mutates the template; callers
// decide what to do with a failure.
func Validate(t *WeeklyTemplate) error {
	if t == nil {
		return fmt.Errorf("%w: template is nil", ErrNoActiveDays)
	}

	active := 0
	for wd := range t.Days {
		d := t.Days[wd]
		if !d.Enabled {
			continue
		}
		active++

		if d.Hours.Start >= d.Hours.End {
			return fmt.Errorf("%w: %s %s-%s", ErrWorkingHoursInverted, d.Weekday, d.Hours.Start, d.Hours.End)
		}
		if d.SlotDurationMinutes <= 0 {
			return fmt.Errorf("%w: %s has no slot duration", ErrIncompleteSlotDefinition, d.Weekday)
		}
		for _, s := range d.Slots {
			if s.DurationMinutes <= 0 || s.Start >= s.End {
				return fmt.Errorf("%w: %s slot %s-%s", ErrIncompleteSlotDefinition, d.Weekday, s.Start, s.End)
			}
			if end, err := s.Start.AddMinutes(s.DurationMinutes); err != nil || end != s.End {
				return fmt.Errorf("%w: %s slot %s has end %s, want %d min after start", ErrIncompleteSlotDefinition, d.Weekday, s.Start, s.End, s.DurationMinutes)
			}
			if s.Start < d.Hours.Start || s.End > d.Hours.End {
				return fmt.Errorf("%w: %s slot %s-%s escapes working hours", ErrIncompleteSlotDefinition, d.Weekday, s.Start, s.End)
			}
		}
	}

	if active == 0 {
		return ErrNoActiveDays
	}
	return nil
}
