package horizon

import (
	"fmt"

	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// DayState distinguishes the reasons a date may show few or no slots.
// "off" (weekday disabled in the template) must round-trip differently
// from "fully_blocked" (explicitly removed availability).
type DayState string

const (
	DayOff              DayState = "off"
	DayOpen             DayState = "open"
	DayPartiallyBlocked DayState = "partially_blocked"
	DayFullyBlocked     DayState = "fully_blocked"
)

// EffectiveSlot is a materialized slot plus its booking occupancy.
type EffectiveSlot struct {
	schedule.Slot
	Booked int `json:"booked_count"`
}

// DaySlots is one concrete date's effective availability.
type DaySlots struct {
	Date  Date            `json:"date"`
	State DayState        `json:"state"`
	Slots []EffectiveSlot `json:"slots"`
}

// MaterializedSchedule projects a weekly template onto the half-open
// date range [HorizonStart, HorizonEnd). Each date owns fresh slot
// copies; blocking a date never touches the template.
type MaterializedSchedule struct {
	HorizonStart Date               `json:"horizon_start"`
	HorizonEnd   Date               `json:"horizon_end"`
	PerDate      map[Date]*DaySlots `json:"per_date"`
}

// Materialize builds the projection for [start, end), applying any
// blocks already recorded for dates in range.
func Materialize(tpl *schedule.WeeklyTemplate, blocks BlockSet, start, end Date) (*MaterializedSchedule, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("horizon end %s precedes start %s", end, start)
	}
	m := &MaterializedSchedule{
		HorizonStart: start,
		HorizonEnd:   end,
		PerDate:      make(map[Date]*DaySlots),
	}
	for d := start; d.Before(end); d = d.AddDays(1) {
		day, err := buildDay(tpl, blocks, d)
		if err != nil {
			return nil, err
		}
		m.PerDate[d] = day
	}
	return m, nil
}

// Extend grows the horizon by whole weeks, materializing only the new
// dates. Already-materialized dates, including their blocks and booked
// counts, are untouched. Zero weeks is a no-op; the horizon never
// shrinks.
func (m *MaterializedSchedule) Extend(tpl *schedule.WeeklyTemplate, blocks BlockSet, weeks int) error {
	if weeks < 0 {
		return fmt.Errorf("horizon cannot shrink (got %d weeks)", weeks)
	}
	if weeks == 0 {
		return nil
	}
	newEnd := m.HorizonEnd.AddDays(7 * weeks)
	added, err := Materialize(tpl, blocks, m.HorizonEnd, newEnd)
	if err != nil {
		return err
	}
	for d, day := range added.PerDate {
		m.PerDate[d] = day
	}
	m.HorizonEnd = newEnd
	return nil
}

// buildDay generates a date's slots fresh from the template inputs and
// subtracts blocks. A slot overlapping a block at all is dropped whole;
// partial trimming is not a thing anywhere in this engine.
func buildDay(tpl *schedule.WeeklyTemplate, blocks BlockSet, date Date) (*DaySlots, error) {
	day := &DaySlots{Date: date, State: DayOpen, Slots: []EffectiveSlot{}}

	if blocks.hasWholeDay(date) {
		day.State = DayFullyBlocked
		return day, nil
	}

	tplDay, err := tpl.Day(date.Weekday())
	if err != nil {
		return nil, err
	}
	if !tplDay.Enabled {
		day.State = DayOff
		return day, nil
	}

	generated, err := schedule.Generate(tplDay.Hours, tplDay.SlotDurationMinutes, tplDay.Breaks)
	if err != nil {
		return nil, err
	}

	dateBlocks := blocks.ForDate(date)
	for _, s := range generated {
		if blocks.covers(date, schedule.Interval{Start: s.Start, End: s.End}) {
			continue
		}
		day.Slots = append(day.Slots, EffectiveSlot{Slot: s})
	}

	if len(dateBlocks) > 0 {
		if len(day.Slots) == 0 {
			day.State = DayFullyBlocked
		} else {
			day.State = DayPartiallyBlocked
		}
	}
	return day, nil
}
