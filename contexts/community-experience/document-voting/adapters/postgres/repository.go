package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores documents in `documents` and voter set membership in
// `document_votes`. The (document_id, voter_id) primary key keeps a voter in
// at most one of the two sets.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the tables owned by this repository.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&documentModel{},
		&documentVoteModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return r.logError("document_voting_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateDocument(ctx context.Context, document entities.Document) error {
	row := documentModelFromEntity(document)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("document_voting_repo_create_document_failed", err,
			"document_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	return r.getDocument(r.db.WithContext(ctx), strings.TrimSpace(documentID))
}

// SaveDocument upserts the document row and replaces its voter rows in one
// transaction.
func (r *Repository) SaveDocument(ctx context.Context, document entities.Document) error {
	row := documentModelFromEntity(document)
	votes := voteModelsFromEntity(document)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"kind":       row.Kind,
				"body":       row.Body,
				"author_id":  row.AuthorID,
				"voter_kind": row.VoterKind,
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", row.ID).Delete(&documentVoteModel{}).Error; err != nil {
			return err
		}
		if len(votes) == 0 {
			return nil
		}
		return tx.Create(&votes).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("document_voting_repo_save_document_failed", err,
			"document_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context, kind string) ([]entities.Document, error) {
	tx := r.db.WithContext(ctx).Model(&documentModel{})
	if strings.TrimSpace(kind) != "" {
		tx = tx.Where("kind = ?", strings.TrimSpace(kind))
	}
	var rows []documentModel
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("document_voting_repo_list_documents_failed", err,
			"kind", strings.TrimSpace(kind),
		)
	}
	return r.hydrate(ctx, rows)
}

func (r *Repository) ListDocumentsByVoter(ctx context.Context, voterID entities.VoterID) ([]entities.Document, error) {
	voted := r.db.Model(&documentVoteModel{}).
		Select("document_id").
		Where("voter_id = ?", strings.TrimSpace(string(voterID)))
	var rows []documentModel
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", voted).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("document_voting_repo_list_documents_by_voter_failed", err,
			"voter_id", string(voterID),
		)
	}
	return r.hydrate(ctx, rows)
}

// ApplyVote locks the document row and rewrites only the voter's membership
// row, so concurrent voters on the same document serialize in Postgres.
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
	var transition entities.VoteTransition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc documentModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", documentID).
			First(&doc).Error; err != nil {
			return err
		}

		previous := entities.VoteStateUnvoted
		var existing documentVoteModel
		err := tx.Where("document_id = ? AND voter_id = ?", documentID, string(voterID)).First(&existing).Error
		switch {
		case err == nil:
			previous = directionToState(existing.Direction)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if previous != target {
			if previous != entities.VoteStateUnvoted {
				if err := tx.Where("document_id = ? AND voter_id = ?", documentID, string(voterID)).
					Delete(&documentVoteModel{}).Error; err != nil {
					return err
				}
			}
			if target != entities.VoteStateUnvoted {
				var maxOrdinal int64
				if err := tx.Model(&documentVoteModel{}).
					Where("document_id = ?", documentID).
					Select("COALESCE(MAX(ordinal), 0)").
					Scan(&maxOrdinal).Error; err != nil {
					return err
				}
				if err := tx.Create(&documentVoteModel{
					DocumentID: documentID,
					VoterID:    string(voterID),
					Direction:  stateToDirection(target),
					Ordinal:    maxOrdinal + 1,
					CreatedAt:  updatedAt.UTC(),
				}).Error; err != nil {
					return err
				}
			}
			doc.UpdatedAt = updatedAt.UTC()
			if err := tx.Model(&documentModel{}).
				Where("id = ?", documentID).
				Update("updated_at", doc.UpdatedAt).Error; err != nil {
				return err
			}
		}

		document, err := r.loadVotes(tx, doc)
		if err != nil {
			return err
		}
		transition = entities.VoteTransition{
			Document: document,
			Voter:    voterID,
			Previous: previous,
			Current:  document.StateOf(voterID),
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return entities.VoteTransition{}, domainerrors.ErrDocumentNotFound
		case isUniqueViolation(err):
			return entities.VoteTransition{}, domainerrors.ErrConflict
		}
		return entities.VoteTransition{}, r.logError("document_voting_repo_apply_vote_failed", err,
			"document_id", documentID,
			"voter_id", string(voterID),
			"target", string(target),
		)
	}
	return transition, nil
}

func (r *Repository) getDocument(tx *gorm.DB, documentID string) (entities.Document, error) {
	var row documentModel
	if err := tx.Where("id = ?", documentID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Document{}, domainerrors.ErrDocumentNotFound
		}
		return entities.Document{}, r.logError("document_voting_repo_get_document_failed", err,
			"document_id", documentID,
		)
	}
	document, err := r.loadVotes(tx, row)
	if err != nil {
		return entities.Document{}, r.logError("document_voting_repo_get_document_votes_failed", err,
			"document_id", documentID,
		)
	}
	return document, nil
}

func (r *Repository) loadVotes(tx *gorm.DB, row documentModel) (entities.Document, error) {
	var votes []documentVoteModel
	if err := tx.Where("document_id = ?", row.ID).
		Order("ordinal ASC").
		Find(&votes).Error; err != nil {
		return entities.Document{}, err
	}
	return row.toEntity(votes), nil
}

func (r *Repository) hydrate(ctx context.Context, rows []documentModel) ([]entities.Document, error) {
	if len(rows) == 0 {
		return []entities.Document{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var votes []documentVoteModel
	if err := r.db.WithContext(ctx).
		Where("document_id IN ?", ids).
		Order("document_id ASC").
		Order("ordinal ASC").
		Find(&votes).Error; err != nil {
		return nil, r.logError("document_voting_repo_hydrate_votes_failed", err,
			"documents", len(ids),
		)
	}
	byDocument := make(map[string][]documentVoteModel, len(rows))
	for _, vote := range votes {
		byDocument[vote.DocumentID] = append(byDocument[vote.DocumentID], vote)
	}
	items := make([]entities.Document, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(byDocument[row.ID]))
	}
	return items, nil
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
	r.logger.Error("document voting repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.DocumentRepository = (*Repository)(nil)
var _ ports.VoteApplier = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
