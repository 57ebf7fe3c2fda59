package booking

import (
	"context"
	"time"
)

// Provider asks the booking service which slots in a date range carry
// appointments. The engine consults it before rebuilding materialized
// dates, since rebuilding would discard occupancy it does not own.
type Provider interface {
	BookedStarts(ctx context.Context, practitionerID string, from, to time.Time) ([]time.Time, error)
}
