package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

type scheduleUpdatedPayload struct {
	PractitionerID string `json:"practitioner_id"`
	Weekday        string `json:"weekday"`
	Change         string `json:"change"`
}

// editTemplate applies one template mutation, validates the result, and
// makes the edit visible on future materialized dates in the same
// atomic step.
func (e *Engine) editTemplate(ctx context.Context, practitionerID, change string, weekday time.Weekday, edit func(tpl *schedule.WeeklyTemplate) error) error {
	return e.mutate(ctx, practitionerID, true, func(cal *horizon.Calendar, today horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if err := edit(cal.Template); err != nil {
			return nil, err
		}
		if err := schedule.Validate(cal.Template); err != nil {
			return nil, err
		}
		if cal.Horizon != nil {
			if err := e.checkNoBookings(ctx, practitionerID, today, cal.Horizon.HorizonEnd); err != nil {
				return nil, err
			}
			if err := cal.Rematerialize(today); err != nil {
				return nil, err
			}
		}
		evt, err := outbox.NewEvent(outbox.EventScheduleUpdated, practitionerID, scheduleUpdatedPayload{
			PractitionerID: practitionerID,
			Weekday:        weekday.String(),
			Change:         change,
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

func (e *Engine) SetDayEnabled(ctx context.Context, practitionerID string, weekday time.Weekday, enabled bool) error {
	return e.editTemplate(ctx, practitionerID, "day_enabled", weekday, func(tpl *schedule.WeeklyTemplate) error {
		return tpl.SetDayEnabled(weekday, enabled)
	})
}

func (e *Engine) SetWorkingHours(ctx context.Context, practitionerID string, weekday time.Weekday, start, end schedule.TimeOfDay) error {
	return e.editTemplate(ctx, practitionerID, "working_hours", weekday, func(tpl *schedule.WeeklyTemplate) error {
		return tpl.SetWorkingHours(weekday, start, end)
	})
}

func (e *Engine) SetSlotDuration(ctx context.Context, practitionerID string, weekday time.Weekday, minutes int) error {
	return e.editTemplate(ctx, practitionerID, "slot_duration", weekday, func(tpl *schedule.WeeklyTemplate) error {
		return tpl.SetSlotDuration(weekday, minutes)
	})
}

func (e *Engine) UpsertBreak(ctx context.Context, practitionerID string, weekday time.Weekday, br schedule.Break) error {
	return e.editTemplate(ctx, practitionerID, "break_upserted", weekday, func(tpl *schedule.WeeklyTemplate) error {
		return tpl.UpsertBreak(weekday, br)
	})
}

func (e *Engine) RemoveBreak(ctx context.Context, practitionerID string, weekday time.Weekday, name string) error {
	return e.editTemplate(ctx, practitionerID, "break_removed", weekday, func(tpl *schedule.WeeklyTemplate) error {
		return tpl.RemoveBreak(weekday, name)
	})
}

// DayUpdate carries the optional fields of a single-day edit. All
// present fields apply in one atomic transition.
type DayUpdate struct {
	Enabled             *bool
	Start               *schedule.TimeOfDay
	End                 *schedule.TimeOfDay
	SlotDurationMinutes *int
}

// UpdateDay applies hours, duration and the enabled flag together, so a
// settings form submit is one state transition rather than three.
func (e *Engine) UpdateDay(ctx context.Context, practitionerID string, weekday time.Weekday, upd DayUpdate) error {
	return e.editTemplate(ctx, practitionerID, "day_updated", weekday, func(tpl *schedule.WeeklyTemplate) error {
		if upd.Start != nil || upd.End != nil {
			if upd.Start == nil || upd.End == nil {
				return fmt.Errorf("working hours require both start and end")
			}
			if err := tpl.SetWorkingHours(weekday, *upd.Start, *upd.End); err != nil {
				return err
			}
		}
		if upd.SlotDurationMinutes != nil {
			if err := tpl.SetSlotDuration(weekday, *upd.SlotDurationMinutes); err != nil {
				return err
			}
		}
		if upd.Enabled != nil {
			if err := tpl.SetDayEnabled(weekday, *upd.Enabled); err != nil {
				return err
			}
		}
		return nil
	})
}

// checkNoBookings asks the booking service whether the date range holds
// appointments. With no provider configured the engine's own occupancy
// counters are the only guard.
func (e *Engine) checkNoBookings(ctx context.Context, practitionerID string, from, to horizon.Date) error {
	if e.provider == nil {
		return nil
	}
	starts, err := e.provider.BookedStarts(ctx, practitionerID, from.Time(), to.Time())
	if err != nil {
		return fmt.Errorf("booking service check: %w", err)
	}
	if len(starts) > 0 {
		return fmt.Errorf("rebuild schedule with %d booked appointments: %w", len(starts), horizon.ErrBookedSlots)
	}
	return nil
}
