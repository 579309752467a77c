package mongoadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const documentsCollection = "documents"

const (
	positivePath = "vote.positive"
	negativePath = "vote.negative"
)

// Repository keeps each document and both of its voter sets in one MongoDB
// record, so a vote transition is a single-document update.
type Repository struct {
	documents *mongo.Collection
	logger    *slog.Logger
}

func NewRepository(db *mongo.Database, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		documents: db.Collection(documentsCollection),
		logger:    logger,
	}
}

// EnsureIndexes creates the kind and voter membership indexes.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.documents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: positivePath, Value: 1}}},
		{Keys: bson.D{{Key: negativePath, Value: 1}}},
	})
	if err != nil {
		return r.logError("document_voting_mongo_ensure_indexes_failed", err)
	}
	return nil
}

func (r *Repository) CreateDocument(ctx context.Context, document entities.Document) error {
	if _, err := r.documents.InsertOne(ctx, recordFromEntity(document)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("document_voting_mongo_create_document_failed", err,
			"document_id", document.DocumentID,
		)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	documentID = strings.TrimSpace(documentID)
	var record documentRecord
	if err := r.documents.FindOne(ctx, bson.M{"_id": documentID}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entities.Document{}, domainerrors.ErrDocumentNotFound
		}
		return entities.Document{}, r.logError("document_voting_mongo_get_document_failed", err,
			"document_id", documentID,
		)
	}
	return record.toEntity(), nil
}

func (r *Repository) SaveDocument(ctx context.Context, document entities.Document) error {
	record := recordFromEntity(document)
	_, err := r.documents.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	if err != nil {
		return r.logError("document_voting_mongo_save_document_failed", err,
			"document_id", record.ID,
		)
	}
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context, kind string) ([]entities.Document, error) {
	filter := bson.M{}
	if kind = strings.TrimSpace(kind); kind != "" {
		filter["kind"] = kind
	}
	items, err := r.find(ctx, filter)
	if err != nil {
		return nil, r.logError("document_voting_mongo_list_documents_failed", err, "kind", kind)
	}
	return items, nil
}

func (r *Repository) ListDocumentsByVoter(ctx context.Context, voterID entities.VoterID) ([]entities.Document, error) {
	id := strings.TrimSpace(string(voterID))
	items, err := r.find(ctx, bson.M{"$or": bson.A{
		bson.M{positivePath: id},
		bson.M{negativePath: id},
	}})
	if err != nil {
		return nil, r.logError("document_voting_mongo_list_documents_by_voter_failed", err, "voter_id", id)
	}
	return items, nil
}

// ApplyVote runs the transition as one pipeline update. The pre-image is
// returned by the server and the post-image is derived from it locally.
func (r *Repository) ApplyVote(
	ctx context.Context,
	documentID string,
	voterID entities.VoterID,
	target entities.VoteState,
	updatedAt time.Time,
) (entities.VoteTransition, error) {
	if !target.Valid() {
		return entities.VoteTransition{}, domainerrors.ErrInvalidVoteInput
	}
	documentID = strings.TrimSpace(documentID)
	update := votePipeline(string(voterID), target, updatedAt.UTC())

	var before documentRecord
	err := r.documents.FindOneAndUpdate(
		ctx,
		bson.M{"_id": documentID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return entities.VoteTransition{}, domainerrors.ErrDocumentNotFound
		}
		return entities.VoteTransition{}, r.logError("document_voting_mongo_apply_vote_failed", err,
			"document_id", documentID,
			"voter_id", string(voterID),
			"target", string(target),
		)
	}

	document := before.toEntity()
	previous := document.Apply(voterID, target)
	current := document.StateOf(voterID)
	if previous != current {
		document.UpdatedAt = updatedAt.UTC()
	}
	return entities.VoteTransition{
		Document: document,
		Voter:    voterID,
		Previous: previous,
		Current:  current,
	}, nil
}

func (r *Repository) find(ctx context.Context, filter bson.M) ([]entities.Document, error) {
	cursor, err := r.documents.Find(ctx, filter, options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}))
	if err != nil {
		return nil, err
	}
	var records []documentRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	items := make([]entities.Document, 0, len(records))
	for _, record := range records {
		items = append(items, record.toEntity())
	}
	return items, nil
}

// votePipeline removes the voter from the opposite set and appends it to the
// target set unless already present. updated_at moves only when membership
// changes.
func votePipeline(voterID string, target entities.VoteState, updatedAt time.Time) mongo.Pipeline {
	var positive, negative, changed any
	switch target {
	case entities.VoteStateUpvoted:
		positive = appendMember(voterID, positivePath)
		negative = withoutMember(voterID, negativePath)
		changed = bson.M{"$not": bson.A{isMember(voterID, positivePath)}}
	case entities.VoteStateDownvoted:
		positive = withoutMember(voterID, positivePath)
		negative = appendMember(voterID, negativePath)
		changed = bson.M{"$not": bson.A{isMember(voterID, negativePath)}}
	default:
		positive = withoutMember(voterID, positivePath)
		negative = withoutMember(voterID, negativePath)
		changed = bson.M{"$or": bson.A{isMember(voterID, positivePath), isMember(voterID, negativePath)}}
	}
	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			positivePath: positive,
			negativePath: negative,
			"updated_at": bson.M{"$cond": bson.A{changed, updatedAt, "$updated_at"}},
		}}},
	}
}

func arrayAt(path string) bson.M {
	return bson.M{"$ifNull": bson.A{"$" + path, bson.A{}}}
}

func isMember(voterID, path string) bson.M {
	return bson.M{"$in": bson.A{bson.M{"$literal": voterID}, arrayAt(path)}}
}

func withoutMember(voterID, path string) bson.M {
	return bson.M{"$filter": bson.M{
		"input": arrayAt(path),
		"cond":  bson.M{"$ne": bson.A{"$$this", bson.M{"$literal": voterID}}},
	}}
}

func appendMember(voterID, path string) bson.M {
	return bson.M{"$cond": bson.A{
		isMember(voterID, path),
		arrayAt(path),
		bson.M{"$concatArrays": bson.A{arrayAt(path), bson.A{bson.M{"$literal": voterID}}}},
	}}
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "community-experience/document-voting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("document voting mongo operation failed", fields...)
	return err
}

var _ ports.DocumentRepository = (*Repository)(nil)
var _ ports.VoteApplier = (*Repository)(nil)
