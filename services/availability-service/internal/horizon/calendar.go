package horizon

import (
	"fmt"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// Calendar is the full availability state of one practitioner: the
// weekly template they edit, the materialized horizon patients see, and
// the date-specific blocks layered on top. The three parts are always
// persisted together.
type Calendar struct {
	Template *schedule.WeeklyTemplate `json:"template"`
	Horizon  *MaterializedSchedule    `json:"horizon"`
	Blocks   BlockSet                 `json:"blocks"`
}

func NewCalendar(tpl *schedule.WeeklyTemplate) *Calendar {
	return &Calendar{
		Template: tpl,
		Blocks:   BlockSet{},
	}
}

// MaterializeHorizon projects the template onto [today, today+7*weeks)
// for a calendar that has no horizon yet.
func (c *Calendar) MaterializeHorizon(today Date, weeks int) error {
	if c.Horizon != nil {
		return fmt.Errorf("horizon already materialized; extend or rematerialize instead")
	}
	if weeks <= 0 {
		return fmt.Errorf("horizon length must be at least one week (got %d)", weeks)
	}
	if err := schedule.Validate(c.Template); err != nil {
		return err
	}
	m, err := Materialize(c.Template, c.Blocks, today, today.AddDays(7*weeks))
	if err != nil {
		return err
	}
	c.Horizon = m
	return nil
}

// Rematerialize rebuilds today and later dates from the current
// template, which is how template edits become visible. Past dates keep
// their materialized form and the horizon bounds do not move. It
// refuses to rebuild over booked slots; the booking collaborator has to
// release them first.
func (c *Calendar) Rematerialize(today Date) error {
	if c.Horizon == nil {
		return fmt.Errorf("rematerialize: %w", ErrHorizonMissing)
	}
	if err := schedule.Validate(c.Template); err != nil {
		return err
	}

	from := today
	if from.Before(c.Horizon.HorizonStart) {
		from = c.Horizon.HorizonStart
	}
	end := c.Horizon.HorizonEnd

	if booked, ok := c.firstBookedDate(from, end); ok {
		return fmt.Errorf("rematerialize %s: %w", booked, ErrBookedSlots)
	}

	rebuilt, err := Materialize(c.Template, c.Blocks, from, end)
	if err != nil {
		return err
	}
	for d, day := range rebuilt.PerDate {
		c.Horizon.PerDate[d] = day
	}
	return nil
}

// ExtendHorizon grows the horizon by whole weeks without touching
// anything already materialized.
func (c *Calendar) ExtendHorizon(weeks int) error {
	if c.Horizon == nil {
		return fmt.Errorf("extend: %w", ErrHorizonMissing)
	}
	return c.Horizon.Extend(c.Template, c.Blocks, weeks)
}

// BlockInterval removes every slot on date whose [start,end) overlaps
// the given range. Overlapping slots are dropped whole; surviving
// slots keep their booked counts.
func (c *Calendar) BlockInterval(date Date, start, end schedule.TimeOfDay, reason string, today Date, at time.Time) (BlockedInterval, error) {
	if date.Before(today) {
		return BlockedInterval{}, ErrPastDateBlocked
	}
	if start >= end {
		return BlockedInterval{}, fmt.Errorf("block start %s must precede end %s", start, end)
	}

	b := newBlockedInterval(date, start, end, false, reason, at)
	c.Blocks.add(b)
	c.applyBlocksInPlace(date)
	return b, nil
}

// BlockWholeDay marks the date unavailable regardless of template
// state, the equivalent of blocking the whole working-hours window.
func (c *Calendar) BlockWholeDay(date Date, reason string, today Date, at time.Time) (BlockedInterval, error) {
	if date.Before(today) {
		return BlockedInterval{}, ErrPastDateBlocked
	}

	start, end := schedule.TimeOfDay(0), schedule.TimeOfDay(schedule.MinutesPerDay-1)
	if d, err := c.Template.Day(date.Weekday()); err == nil && d.Enabled {
		start, end = d.Hours.Start, d.Hours.End
	}

	b := newBlockedInterval(date, start, end, true, reason, at)
	c.Blocks.add(b)
	if day, ok := c.dayFor(date); ok {
		day.State = DayFullyBlocked
		day.Slots = []EffectiveSlot{}
	}
	return b, nil
}

// Unblock reverses a prior block. The date's slots are regenerated from
// the current template rather than restored verbatim, so a block cannot
// resurrect slot shapes the template no longer produces. Booked counts
// on slots that still exist carry over.
func (c *Calendar) Unblock(date Date, start, end schedule.TimeOfDay, today Date) error {
	if date.Before(today) {
		return ErrPastDateImmutable
	}
	if !c.Blocks.remove(date, start, end) {
		return fmt.Errorf("%s-%s on %s: %w", start, end, date, ErrBlockNotFound)
	}

	day, ok := c.dayFor(date)
	if !ok {
		return nil
	}
	booked := make(map[schedule.TimeOfDay]int, len(day.Slots))
	for _, s := range day.Slots {
		if s.Booked > 0 {
			booked[s.Start] = s.Booked
		}
	}
	rebuilt, err := buildDay(c.Template, c.Blocks, date)
	if err != nil {
		return err
	}
	for i := range rebuilt.Slots {
		rebuilt.Slots[i].Booked = booked[rebuilt.Slots[i].Start]
	}
	c.Horizon.PerDate[date] = rebuilt
	return nil
}

// OccupySlot records a booking against the slot starting at start.
func (c *Calendar) OccupySlot(date Date, start schedule.TimeOfDay, today Date) error {
	if date.Before(today) {
		return ErrPastDateImmutable
	}
	slot, err := c.slotAt(date, start)
	if err != nil {
		return err
	}
	if slot.Booked >= slot.Capacity {
		return ErrSlotFullyBooked
	}
	slot.Booked++
	return nil
}

// ReleaseSlot undoes a booking; releasing an unbooked slot is a no-op.
func (c *Calendar) ReleaseSlot(date Date, start schedule.TimeOfDay, today Date) error {
	if date.Before(today) {
		return ErrPastDateImmutable
	}
	slot, err := c.slotAt(date, start)
	if err != nil {
		return err
	}
	if slot.Booked > 0 {
		slot.Booked--
	}
	return nil
}

// DayFor returns the effective slots for a materialized date.
func (c *Calendar) DayFor(date Date) (*DaySlots, bool) {
	return c.dayFor(date)
}

func (c *Calendar) dayFor(date Date) (*DaySlots, bool) {
	if c.Horizon == nil {
		return nil, false
	}
	day, ok := c.Horizon.PerDate[date]
	return day, ok
}

func (c *Calendar) slotAt(date Date, start schedule.TimeOfDay) (*EffectiveSlot, error) {
	day, ok := c.dayFor(date)
	if !ok {
		return nil, ErrSlotNotFound
	}
	for i := range day.Slots {
		if day.Slots[i].Start == start {
			return &day.Slots[i], nil
		}
	}
	return nil, ErrSlotNotFound
}

// applyBlocksInPlace re-filters a date's existing slots against the
// current block set without regenerating, preserving booked counts.
func (c *Calendar) applyBlocksInPlace(date Date) {
	day, ok := c.dayFor(date)
	if !ok || day.State == DayOff {
		return
	}
	kept := day.Slots[:0]
	for _, s := range day.Slots {
		if !c.Blocks.covers(date, schedule.Interval{Start: s.Start, End: s.End}) {
			kept = append(kept, s)
		}
	}
	day.Slots = kept
	if len(c.Blocks.ForDate(date)) > 0 {
		if len(day.Slots) == 0 {
			day.State = DayFullyBlocked
		} else {
			day.State = DayPartiallyBlocked
		}
	}
}

func (c *Calendar) firstBookedDate(from, to Date) (Date, bool) {
	if c.Horizon == nil {
		return "", false
	}
	for d := from; d.Before(to); d = d.AddDays(1) {
		day, ok := c.Horizon.PerDate[d]
		if !ok {
			continue
		}
		for _, s := range day.Slots {
			if s.Booked > 0 {
				return d, true
			}
		}
	}
	return "", false
}
