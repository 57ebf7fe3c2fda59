package schedule

import "errors"

var (
	// ErrInvalidDuration rejects non-positive slot durations.
	ErrInvalidDuration = errors.New("slot duration must be positive")
	// ErrOutOfRangeTime marks minute-of-day arithmetic leaving [00:00, 23:59].
	ErrOutOfRangeTime = errors.New("time of day out of range")
	// ErrWorkingHoursInverted marks an enabled day whose start is not before its end.
	ErrWorkingHoursInverted = errors.New("working hours start must precede end")
	// ErrNoActiveDays rejects a template with every weekday disabled.
	ErrNoActiveDays = errors.New("at least one weekday must be enabled")
	// ErrIncompleteSlotDefinition marks a slot missing or contradicting its start/end/duration.
	ErrIncompleteSlotDefinition = errors.New("slot definition incomplete")
)
