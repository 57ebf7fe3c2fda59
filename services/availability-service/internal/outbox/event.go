package outbox

import "encoding/json"

// Event is the envelope written to the outbox table inside the same
// transaction as the state change it describes. The Kafka topic equals
// EventType, one event type per topic.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the availability engine.
const (
	EventScheduleUpdated   = "availability.schedule.updated.v1"
	EventHorizonExtended   = "availability.horizon.extended.v1"
	EventIntervalBlocked   = "availability.interval.blocked.v1"
	EventIntervalUnblocked = "availability.interval.unblocked.v1"
	EventSlotOccupied      = "availability.slot.occupied.v1"
	EventSlotReleased      = "availability.slot.released.v1"
)

// NewEvent marshals payload and fills the envelope for a practitioner
// aggregate.
func NewEvent(eventType, practitionerID string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "availability",
		AggregateID:   practitionerID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
