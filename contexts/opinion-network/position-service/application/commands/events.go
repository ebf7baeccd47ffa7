package commands

import (
	"encoding/json"
	"time"

	"ballotnet/contexts/opinion-network/position-service/ports"
)

const (
	TopicPositionSaved   = "position.saved"
	TopicPositionDeleted = "position.deleted"
)

func resolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// newPositionEnvelope builds canonical envelopes for command-side events.
// Events are partitioned by ballot item so cache consumers see a stable
// ordering per contest.
func newPositionEnvelope(
	eventID string,
	eventType string,
	ballotItemID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "position-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "ballot_item_id",
		PartitionKey:     ballotItemID,
		Data:             payload,
	}, nil
}
