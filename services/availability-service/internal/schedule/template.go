package schedule

import (
	"fmt"
	"time"
)

// DaySchedule is one weekday's configuration plus its generated slots.
// Slots are always the generator's output for (Hours, SlotDurationMinutes,
// Breaks); mutators regenerate them, never patch them in place.
type DaySchedule struct {
	Weekday             time.Weekday `json:"weekday"`
	Enabled             bool         `json:"enabled"`
	Hours               Interval     `json:"working_hours"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	Breaks              BreakSet     `json:"breaks"`
	Slots               []Slot       `json:"slots"`
}

// WeeklyTemplate is the source of truth a practitioner edits: seven
// DaySchedules keyed by weekday. Concrete calendar dates come from
// projecting this template, not from the template itself.
type WeeklyTemplate struct {
	DefaultSlotDurationMinutes int                           `json:"default_slot_duration_minutes"`
	Days                       map[time.Weekday]*DaySchedule `json:"days"`
}

const (
	defaultDayStart = TimeOfDay(9 * 60)
	defaultDayEnd   = TimeOfDay(17 * 60)
)

// NewWeeklyTemplate returns a template with all seven days present but
// disabled, carrying 09:00-17:00 hours so enabling a day works without
// further setup.
func NewWeeklyTemplate(defaultSlotDurationMinutes int) (*WeeklyTemplate, error) {
	if defaultSlotDurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	days := make(map[time.Weekday]*DaySchedule, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		days[wd] = &DaySchedule{
			Weekday:             wd,
			Hours:               Interval{Start: defaultDayStart, End: defaultDayEnd},
			SlotDurationMinutes: defaultSlotDurationMinutes,
		}
	}
	return &WeeklyTemplate{
		DefaultSlotDurationMinutes: defaultSlotDurationMinutes,
		Days:                       days,
	}, nil
}

func (t *WeeklyTemplate) Day(weekday time.Weekday) (*DaySchedule, error) {
	d, ok := t.Days[weekday]
	if !ok {
		return nil, fmt.Errorf("weekday %d not present in template", weekday)
	}
	return d, nil
}

// SetDayEnabled toggles a weekday. Disabling clears the generated slots
// but keeps hours, duration and breaks so re-enabling restores them.
func (t *WeeklyTemplate) SetDayEnabled(weekday time.Weekday, enabled bool) error {
	d, err := t.Day(weekday)
	if err != nil {
		return err
	}
	next := *d
	next.Enabled = enabled
	if err := next.regenerate(); err != nil {
		return err
	}
	*d = next
	return nil
}

func (t *WeeklyTemplate) SetWorkingHours(weekday time.Weekday, start, end TimeOfDay) error {
	d, err := t.Day(weekday)
	if err != nil {
		return err
	}
	next := *d
	next.Hours = Interval{Start: start, End: end}
	if err := next.regenerate(); err != nil {
		return err
	}
	*d = next
	return nil
}

func (t *WeeklyTemplate) SetSlotDuration(weekday time.Weekday, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}
	d, err := t.Day(weekday)
	if err != nil {
		return err
	}
	next := *d
	next.SlotDurationMinutes = minutes
	if err := next.regenerate(); err != nil {
		return err
	}
	*d = next
	return nil
}

// UpsertBreak replaces the break with the same name, or appends.
func (t *WeeklyTemplate) UpsertBreak(weekday time.Weekday, br Break) error {
	if err := br.validate(); err != nil {
		return err
	}
	d, err := t.Day(weekday)
	if err != nil {
		return err
	}
	next := *d
	next.Breaks = d.Breaks.clone()
	replaced := false
	for i := range next.Breaks {
		if next.Breaks[i].Name == br.Name {
			next.Breaks[i] = br
			replaced = true
			break
		}
	}
	if !replaced {
		next.Breaks = append(next.Breaks, br)
	}
	if err := next.regenerate(); err != nil {
		return err
	}
	*d = next
	return nil
}

// RemoveBreak deletes a break by name; removing an absent name is a no-op.
func (t *WeeklyTemplate) RemoveBreak(weekday time.Weekday, name string) error {
	d, err := t.Day(weekday)
	if err != nil {
		return err
	}
	next := *d
	next.Breaks = nil
	for _, b := range d.Breaks {
		if b.Name != name {
			next.Breaks = append(next.Breaks, b)
		}
	}
	if len(next.Breaks) == len(d.Breaks) {
		return nil
	}
	if err := next.regenerate(); err != nil {
		return err
	}
	*d = next
	return nil
}

// regenerate recomputes Slots from the day's inputs. It operates on a
// copy held by the mutator, so a failure never leaves a day whose slots
// disagree with its configuration.
func (d *DaySchedule) regenerate() error {
	if !d.Enabled {
		d.Slots = nil
		return nil
	}
	slots, err := Generate(d.Hours, d.SlotDurationMinutes, d.Breaks)
	if err != nil {
		return err
	}
	d.Slots = slots
	return nil
}

// Clone deep-copies the template; projections must never alias the
// template's slot slices.
func (t *WeeklyTemplate) Clone() *WeeklyTemplate {
	if t == nil {
		return nil
	}
	out := &WeeklyTemplate{
		DefaultSlotDurationMinutes: t.DefaultSlotDurationMinutes,
		Days:                       make(map[time.Weekday]*DaySchedule, len(t.Days)),
	}
	for wd, d := range t.Days {
		cp := *d
		cp.Breaks = d.Breaks.clone()
		if d.Slots != nil {
			cp.Slots = make([]Slot, len(d.Slots))
			copy(cp.Slots, d.Slots)
		}
		out.Days[wd] = &cp
	}
	return out
}
