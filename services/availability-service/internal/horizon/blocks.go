package horizon

import (
	"time"

	"github.com/google/uuid"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// BlockedInterval is a practitioner-initiated removal of availability
// on one concrete date. It is keyed on the date, not the weekday, so it
// survives template changes and horizon extensions.
type BlockedInterval struct {
	ID        string             `json:"id"`
	Date      Date               `json:"date"`
	Start     schedule.TimeOfDay `json:"start"`
	End       schedule.TimeOfDay `json:"end"`
	WholeDay  bool               `json:"whole_day"`
	Reason    string             `json:"reason"`
	CreatedAt time.Time          `json:"created_at"`
}

func newBlockedInterval(date Date, start, end schedule.TimeOfDay, wholeDay bool, reason string, at time.Time) BlockedInterval {
	return BlockedInterval{
		ID:        uuid.NewString(),
		Date:      date,
		Start:     start,
		End:       end,
		WholeDay:  wholeDay,
		Reason:    reason,
		CreatedAt: at.UTC(),
	}
}

// BlockSet holds all blocks by date. Blocks for past dates are never
// purged; they simply stop mattering.
type BlockSet map[Date][]BlockedInterval

func (bs BlockSet) ForDate(date Date) []BlockedInterval {
	return bs[date]
}

func (bs BlockSet) add(b BlockedInterval) {
	bs[b.Date] = append(bs[b.Date], b)
}

// remove deletes the first block matching (date, start, end) and
// reports whether one was found.
func (bs BlockSet) remove(date Date, start, end schedule.TimeOfDay) bool {
	list := bs[date]
	for i, b := range list {
		if b.Start == start && b.End == end {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(bs, date)
			} else {
				bs[date] = list
			}
			return true
		}
	}
	return false
}

func (bs BlockSet) hasWholeDay(date Date) bool {
	for _, b := range bs[date] {
		if b.WholeDay {
			return true
		}
	}
	return false
}

// covers reports whether the slot interval overlaps any block on date.
func (bs BlockSet) covers(date Date, iv schedule.Interval) bool {
	for _, b := range bs[date] {
		if b.WholeDay {
			return true
		}
		if iv.Overlaps(schedule.Interval{Start: b.Start, End: b.End}) {
			return true
		}
	}
	return false
}
