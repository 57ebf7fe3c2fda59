package horizon

import "errors"

var (
	// ErrPastDateBlocked rejects block actions aimed at dates before today.
	ErrPastDateBlocked = errors.New("cannot block a past date")
	// ErrPastDateImmutable rejects any other mutation of a past date.
	ErrPastDateImmutable = errors.New("past dates are immutable")
	// ErrSlotNotFound means no slot starts at the requested time on that date.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotFullyBooked means the slot has no remaining capacity.
	ErrSlotFullyBooked = errors.New("slot fully booked")
	// ErrHorizonMissing marks extend/rebuild attempts before any materialization.
	ErrHorizonMissing = errors.New("no materialized horizon")
	// ErrBlockNotFound means unblock had nothing matching to reverse.
	ErrBlockNotFound = errors.New("no matching block")
	// ErrBookedSlots refuses rebuilding dates that carry bookings.
	ErrBookedSlots = errors.New("date range contains booked slots")
)
