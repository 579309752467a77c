package commands

import (
	"encoding/json"
	"time"

	"docvote/contexts/community-experience/document-voting/ports"
)

func newDocumentEnvelope(
	eventID string,
	eventType string,
	documentID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by document so consumers see one document's votes in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "document-voting",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "document_id",
		PartitionKey:     documentID,
		Data:             payload,
	}, nil
}
