package ports

import (
	"context"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	contractsv1 "docvote/contracts/gen/events/v1"
)

// DocumentRepository is the storage collaborator that owns document
// persistence. Voting logic never depends on a concrete engine.
type DocumentRepository interface {
	CreateDocument(ctx context.Context, document entities.Document) error
	GetDocument(ctx context.Context, documentID string) (entities.Document, error)
	// SaveDocument persists the document including both voter sets.
	SaveDocument(ctx context.Context, document entities.Document) error
	// ListDocuments returns documents of a kind; an empty kind lists all.
	ListDocuments(ctx context.Context, kind string) ([]entities.Document, error)
	ListDocumentsByVoter(ctx context.Context, voterID entities.VoterID) ([]entities.Document, error)
}

// VoteApplier is implemented by stores that can apply a single voter
// transition atomically at the storage layer.
type VoteApplier interface {
	ApplyVote(
		ctx context.Context,
		documentID string,
		voterID entities.VoterID,
		target entities.VoteState,
		updatedAt time.Time,
	) (entities.VoteTransition, error)
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts document/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// VoteMetrics records vote transition outcomes.
type VoteMetrics interface {
	ObserveVote(target entities.VoteState, changed bool)
	ObserveVoteFailure(target entities.VoteState)
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// OutboxWriter appends events produced by vote commands.
type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventDedupStore provides idempotent processing guarantees for consumed events.
// ReserveEvent reports true when a live reservation for eventID exists; a
// reservation whose expiresAt is not after now is free to take over. A
// consumer that fails after reserving calls ReleaseEvent so a redelivery is
// processed again.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, now time.Time, expiresAt time.Time) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
