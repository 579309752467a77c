package v1

import (
	"encoding/json"
	"errors"
	"time"
)

// Envelope is the canonical, versioned event envelope shared by producers and
// consumers. Field names are part of the wire contract.
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

var ErrEmptyData = errors.New("event envelope has no data")

// DecodeData unmarshals the envelope payload into target.
func (e Envelope) DecodeData(target any) error {
	if len(e.Data) == 0 {
		return ErrEmptyData
	}
	return json.Unmarshal(e.Data, target)
}
