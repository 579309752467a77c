package mongoadapter

import (
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
)

// documentRecord mirrors the stored shape: voter sets live under vote.positive
// and vote.negative on the document itself.
type documentRecord struct {
	ID        string     `bson:"_id"`
	Kind      string     `bson:"kind"`
	Body      string     `bson:"body"`
	AuthorID  string     `bson:"author_id"`
	VoterKind string     `bson:"voter_kind"`
	Vote      voteRecord `bson:"vote"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type voteRecord struct {
	Positive []string `bson:"positive"`
	Negative []string `bson:"negative"`
}

func recordFromEntity(document entities.Document) documentRecord {
	return documentRecord{
		ID:        document.DocumentID,
		Kind:      document.Kind,
		Body:      document.Body,
		AuthorID:  document.AuthorID,
		VoterKind: document.VoterKind,
		Vote: voteRecord{
			Positive: toStrings(document.Positive()),
			Negative: toStrings(document.Negative()),
		},
		CreatedAt: document.CreatedAt.UTC(),
		UpdatedAt: document.UpdatedAt.UTC(),
	}
}

func (r documentRecord) toEntity() entities.Document {
	return entities.Document{
		DocumentID: r.ID,
		Kind:       r.Kind,
		Body:       r.Body,
		AuthorID:   r.AuthorID,
		VoterKind:  r.VoterKind,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		VotingState: entities.RestoreVotingState(entities.VotingSnapshot{
			Positive: toVoterIDs(r.Vote.Positive),
			Negative: toVoterIDs(r.Vote.Negative),
		}),
	}
}

func toStrings(ids []entities.VoterID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func toVoterIDs(ids []string) []entities.VoterID {
	out := make([]entities.VoterID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entities.VoterID(id))
	}
	return out
}
