package engine

import (
	"context"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

type horizonPayload struct {
	PractitionerID string `json:"practitioner_id"`
	HorizonStart   string `json:"horizon_start"`
	HorizonEnd     string `json:"horizon_end"`
}

type blockPayload struct {
	PractitionerID string `json:"practitioner_id"`
	BlockID        string `json:"block_id,omitempty"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	WholeDay       bool   `json:"whole_day"`
	Reason         string `json:"reason,omitempty"`
}

type slotPayload struct {
	PractitionerID string `json:"practitioner_id"`
	Date           string `json:"date"`
	Start          string `json:"start"`
}

// Materialize projects the template onto concrete dates. The first call
// builds [today, today+7*weeks); later calls rebuild today-and-forward
// from the current template, refusing to run over booked slots.
func (e *Engine) Materialize(ctx context.Context, practitionerID string, weeks int) error {
	return e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if cal.Horizon == nil {
			if err := cal.MaterializeHorizon(today, weeks); err != nil {
				return nil, err
			}
		} else {
			if err := e.checkNoBookings(ctx, practitionerID, today, cal.Horizon.HorizonEnd); err != nil {
				return nil, err
			}
			if err := cal.Rematerialize(today); err != nil {
				return nil, err
			}
		}
		evt, err := outbox.NewEvent(outbox.EventHorizonExtended, practitionerID, horizonPayload{
			PractitionerID: practitionerID,
			HorizonStart:   cal.Horizon.HorizonStart.String(),
			HorizonEnd:     cal.Horizon.HorizonEnd.String(),
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

// Extend grows the horizon by whole weeks; zero weeks is accepted and
// changes nothing.
func (e *Engine) Extend(ctx context.Context, practitionerID string, weeks int) error {
	return e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, _ horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if err := cal.ExtendHorizon(weeks); err != nil {
			return nil, err
		}
		if weeks == 0 {
			return nil, nil
		}
		evt, err := outbox.NewEvent(outbox.EventHorizonExtended, practitionerID, horizonPayload{
			PractitionerID: practitionerID,
			HorizonStart:   cal.Horizon.HorizonStart.String(),
			HorizonEnd:     cal.Horizon.HorizonEnd.String(),
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

func (e *Engine) BlockInterval(ctx context.Context, practitionerID string, date horizon.Date, start, end schedule.TimeOfDay, reason string) (horizon.BlockedInterval, error) {
	var blocked horizon.BlockedInterval
	err := e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, at time.Time) ([]outbox.Event, error) {
		b, err := cal.BlockInterval(date, start, end, reason, today, at)
		if err != nil {
			return nil, err
		}
		blocked = b
		evt, err := outbox.NewEvent(outbox.EventIntervalBlocked, practitionerID, blockPayload{
			PractitionerID: practitionerID,
			BlockID:        b.ID,
			Date:           date.String(),
			Start:          start.String(),
			End:            end.String(),
			Reason:         reason,
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
	return blocked, err
}

func (e *Engine) BlockWholeDay(ctx context.Context, practitionerID string, date horizon.Date, reason string) (horizon.BlockedInterval, error) {
	var blocked horizon.BlockedInterval
	err := e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, at time.Time) ([]outbox.Event, error) {
		b, err := cal.BlockWholeDay(date, reason, today, at)
		if err != nil {
			return nil, err
		}
		blocked = b
		evt, err := outbox.NewEvent(outbox.EventIntervalBlocked, practitionerID, blockPayload{
			PractitionerID: practitionerID,
			BlockID:        b.ID,
			Date:           date.String(),
			Start:          b.Start.String(),
			End:            b.End.String(),
			WholeDay:       true,
			Reason:         reason,
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
	return blocked, err
}

func (e *Engine) Unblock(ctx context.Context, practitionerID string, date horizon.Date, start, end schedule.TimeOfDay) error {
	return e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if err := cal.Unblock(date, start, end, today); err != nil {
			return nil, err
		}
		evt, err := outbox.NewEvent(outbox.EventIntervalUnblocked, practitionerID, blockPayload{
			PractitionerID: practitionerID,
			Date:           date.String(),
			Start:          start.String(),
			End:            end.String(),
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

// OccupySlot records a confirmed booking from the booking collaborator.
func (e *Engine) OccupySlot(ctx context.Context, practitionerID string, date horizon.Date, start schedule.TimeOfDay) error {
	return e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if err := cal.OccupySlot(date, start, today); err != nil {
			return nil, err
		}
		evt, err := outbox.NewEvent(outbox.EventSlotOccupied, practitionerID, slotPayload{
			PractitionerID: practitionerID,
			Date:           date.String(),
			Start:          start.String(),
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

func (e *Engine) ReleaseSlot(ctx context.Context, practitionerID string, date horizon.Date, start schedule.TimeOfDay) error {
	return e.mutate(ctx, practitionerID, false, func(cal *horizon.Calendar, today horizon.Date, _ time.Time) ([]outbox.Event, error) {
		if err := cal.ReleaseSlot(date, start, today); err != nil {
			return nil, err
		}
		evt, err := outbox.NewEvent(outbox.EventSlotReleased, practitionerID, slotPayload{
			PractitionerID: practitionerID,
			Date:           date.String(),
			Start:          start.String(),
		})
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}
