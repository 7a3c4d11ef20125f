package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event envelope shared by in-process consumers
// and the Kafka mirror. Field names are part of the wire contract.
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

// Topics carried on the bus.
const (
	TopicPollStateChanged     = "poll.state_changed"
	TopicVoteCast             = "vote.cast"
	TopicPollDeadlineResolved = "poll.deadline_resolved"
)
