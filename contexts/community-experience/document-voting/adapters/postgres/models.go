package postgresadapter

import (
	"strings"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
)

const (
	directionPositive = "positive"
	directionNegative = "negative"
)

type documentModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Kind      string    `gorm:"column:kind;index"`
	Body      string    `gorm:"column:body"`
	AuthorID  string    `gorm:"column:author_id"`
	VoterKind string    `gorm:"column:voter_kind"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (documentModel) TableName() string {
	return "documents"
}

type documentVoteModel struct {
	DocumentID string    `gorm:"column:document_id;primaryKey"`
	VoterID    string    `gorm:"column:voter_id;primaryKey;index"`
	Direction  string    `gorm:"column:direction"`
	Ordinal    int64     `gorm:"column:ordinal"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (documentVoteModel) TableName() string {
	return "document_votes"
}

func documentModelFromEntity(document entities.Document) documentModel {
	row := documentModel{
		ID:        strings.TrimSpace(document.DocumentID),
		Kind:      strings.TrimSpace(document.Kind),
		Body:      document.Body,
		AuthorID:  strings.TrimSpace(document.AuthorID),
		VoterKind: strings.TrimSpace(document.VoterKind),
		CreatedAt: document.CreatedAt.UTC(),
		UpdatedAt: document.UpdatedAt.UTC(),
	}
	if row.VoterKind == "" {
		row.VoterKind = entities.DefaultVoterKind
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

// voteModelsFromEntity numbers positive voters first, then negative voters,
// each in insertion order.
func voteModelsFromEntity(document entities.Document) []documentVoteModel {
	createdAt := document.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	rows := make([]documentVoteModel, 0, document.TotalVoteCount())
	var ordinal int64
	for _, id := range document.Positive() {
		ordinal++
		rows = append(rows, documentVoteModel{
			DocumentID: strings.TrimSpace(document.DocumentID),
			VoterID:    string(id),
			Direction:  directionPositive,
			Ordinal:    ordinal,
			CreatedAt:  createdAt,
		})
	}
	for _, id := range document.Negative() {
		ordinal++
		rows = append(rows, documentVoteModel{
			DocumentID: strings.TrimSpace(document.DocumentID),
			VoterID:    string(id),
			Direction:  directionNegative,
			Ordinal:    ordinal,
			CreatedAt:  createdAt,
		})
	}
	return rows
}

func (m documentModel) toEntity(votes []documentVoteModel) entities.Document {
	var snapshot entities.VotingSnapshot
	for _, vote := range votes {
		switch vote.Direction {
		case directionPositive:
			snapshot.Positive = append(snapshot.Positive, entities.VoterID(vote.VoterID))
		case directionNegative:
			snapshot.Negative = append(snapshot.Negative, entities.VoterID(vote.VoterID))
		}
	}
	return entities.Document{
		DocumentID:  m.ID,
		Kind:        m.Kind,
		Body:        m.Body,
		AuthorID:    m.AuthorID,
		VoterKind:   m.VoterKind,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		VotingState: entities.RestoreVotingState(snapshot),
	}
}

func directionToState(direction string) entities.VoteState {
	switch direction {
	case directionPositive:
		return entities.VoteStateUpvoted
	case directionNegative:
		return entities.VoteStateDownvoted
	default:
		return entities.VoteStateUnvoted
	}
}

func stateToDirection(state entities.VoteState) string {
	if state == entities.VoteStateDownvoted {
		return directionNegative
	}
	return directionPositive
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "document_voting_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "document_voting_event_dedup"
}
