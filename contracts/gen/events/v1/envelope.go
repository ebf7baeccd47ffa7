package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned wrapper every ballotnet event travels in:
// position.saved records leaving the position outbox and the social
// relationship events (follow_added, friend_added, graph_changed) the score
// cache consumes. Contract-only; the shape must stay backward compatible.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
