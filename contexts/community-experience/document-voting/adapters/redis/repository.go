package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	goredis "github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries when a watched key changes
// between read and EXEC.
const maxTxRetries = 5

// metaRecord is the JSON value stored at the document key. Voter sets live
// in two sorted sets scored by insertion sequence.
type metaRecord struct {
	DocumentID string    `json:"document_id"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	AuthorID   string    `json:"author_id"`
	VoterKind  string    `json:"voter_kind"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Repository struct {
	rdb    *goredis.Client
	logger *slog.Logger
}

func NewRepository(rdb *goredis.Client, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{rdb: rdb, logger: logger}
}

func (r *Repository) CreateDocument(ctx context.Context, document entities.Document) error {
	payload, err := json.Marshal(metaFromEntity(document))
	if err != nil {
		return err
	}
	documentID := document.DocumentID
	created, err := r.rdb.SetNX(ctx, documentKey(documentID), payload, 0).Result()
	if err != nil {
		return r.logError("document_voting_redis_create_document_failed", err, "document_id", documentID)
	}
	if !created {
		return domainerrors.ErrConflict
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		writeIndexes(ctx, pipe, document)
		writeVoters(ctx, pipe, document, nil)
		return nil
	})
	if err != nil {
		return r.logError("document_voting_redis_create_document_index_failed", err, "document_id", documentID)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	documentID = strings.TrimSpace(documentID)
	document, err := load(ctx, r.rdb, documentID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrDocumentNotFound) {
			return entities.Document{}, err
		}
		return entities.Document{}, r.logError("document_voting_redis_get_document_failed", err, "document_id", documentID)
	}
	return document, nil
}

// SaveDocument rewrites the document and both voter sets under WATCH so a
// concurrent writer forces a retry instead of interleaving.
func (r *Repository) SaveDocument(ctx context.Context, document entities.Document) error {
	documentID := strings.TrimSpace(document.DocumentID)
	payload, err := json.Marshal(metaFromEntity(document))
	if err != nil {
		return err
	}
	err = r.withRetry(ctx, func(tx *goredis.Tx) error {
		previous, err := loadVoters(ctx, tx, documentID)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, documentKey(documentID), payload, 0)
			writeIndexes(ctx, pipe, document)
			writeVoters(ctx, pipe, document, &previous)
			return nil
		})
		return err
	}, documentKey(documentID), positiveKey(documentID), negativeKey(documentID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return err
		}
		return r.logError("document_voting_redis_save_document_failed", err, "document_id", documentID)
	}
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context, kind string) ([]entities.Document, error) {
	key := allDocumentsKey()
	if kind = strings.TrimSpace(kind); kind != "" {
		key = kindKey(kind)
	}
	ids, err := r.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, r.logError("document_voting_redis_list_documents_failed", err, "kind", kind)
	}
	items, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, r.logError("document_voting_redis_list_documents_load_failed", err, "kind", kind)
	}
	return items, nil
}

func (r *Repository) ListDocumentsByVoter(ctx context.Context, voterID entities.VoterID) ([]entities.Document, error) {
	id := strings.TrimSpace(string(voterID))
	ids, err := r.rdb.SMembers(ctx, voterKey(id)).Result()
	if err != nil {
		return nil, r.logError("document_voting_redis_list_documents_by_voter_failed", err, "voter_id", id)
	}
	items, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, r.logError("document_voting_redis_list_documents_by_voter_load_failed", err, "voter_id", id)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].DocumentID < items[j].DocumentID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// ApplyVote watches the document and its voter sets, applies the
// transition locally, and commits only the voter's membership change.
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
	member := string(voterID)

	var transition entities.VoteTransition
	err := r.withRetry(ctx, func(tx *goredis.Tx) error {
		document, err := load(ctx, tx, documentID)
		if err != nil {
			return err
		}
		last, err := maxScore(ctx, tx, documentID)
		if err != nil {
			return err
		}

		previous := document.Apply(voterID, target)
		current := document.StateOf(voterID)
		transition = entities.VoteTransition{
			Voter:    voterID,
			Previous: previous,
			Current:  current,
		}
		if previous == current {
			transition.Document = document
			return nil
		}
		document.UpdatedAt = updatedAt.UTC()
		transition.Document = document
		payload, err := json.Marshal(metaFromEntity(document))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.ZRem(ctx, positiveKey(documentID), member)
			pipe.ZRem(ctx, negativeKey(documentID), member)
			switch current {
			case entities.VoteStateUpvoted:
				pipe.ZAdd(ctx, positiveKey(documentID), goredis.Z{Score: last + 1, Member: member})
				pipe.SAdd(ctx, voterKey(member), documentID)
			case entities.VoteStateDownvoted:
				pipe.ZAdd(ctx, negativeKey(documentID), goredis.Z{Score: last + 1, Member: member})
				pipe.SAdd(ctx, voterKey(member), documentID)
			default:
				pipe.SRem(ctx, voterKey(member), documentID)
			}
			pipe.Set(ctx, documentKey(documentID), payload, 0)
			return nil
		})
		return err
	}, documentKey(documentID), positiveKey(documentID), negativeKey(documentID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrDocumentNotFound) || errors.Is(err, domainerrors.ErrConflict) {
			return entities.VoteTransition{}, err
		}
		return entities.VoteTransition{}, r.logError("document_voting_redis_apply_vote_failed", err,
			"document_id", documentID,
			"voter_id", member,
			"target", string(target),
		)
	}
	return transition, nil
}

func (r *Repository) withRetry(ctx context.Context, fn func(tx *goredis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	r.logger.Warn("document voting redis transaction retries exhausted",
		"event", "document_voting_redis_tx_retries_exhausted",
		"module", "community-experience/document-voting",
		"layer", "adapter",
		"keys", keys,
	)
	return domainerrors.ErrConflict
}

func (r *Repository) loadMany(ctx context.Context, ids []string) ([]entities.Document, error) {
	items := make([]entities.Document, 0, len(ids))
	for _, id := range ids {
		document, err := load(ctx, r.rdb, id)
		if errors.Is(err, domainerrors.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, document)
	}
	return items, nil
}

func load(ctx context.Context, c goredis.Cmdable, documentID string) (entities.Document, error) {
	raw, err := c.Get(ctx, documentKey(documentID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return entities.Document{}, domainerrors.ErrDocumentNotFound
		}
		return entities.Document{}, err
	}
	var meta metaRecord
	if err := json.Unmarshal(raw, &meta); err != nil {
		return entities.Document{}, fmt.Errorf("decode document %s: %w", documentID, err)
	}
	snapshot, err := loadVoters(ctx, c, documentID)
	if err != nil {
		return entities.Document{}, err
	}
	return entities.Document{
		DocumentID:  meta.DocumentID,
		Kind:        meta.Kind,
		Body:        meta.Body,
		AuthorID:    meta.AuthorID,
		VoterKind:   meta.VoterKind,
		CreatedAt:   meta.CreatedAt.UTC(),
		UpdatedAt:   meta.UpdatedAt.UTC(),
		VotingState: entities.RestoreVotingState(snapshot),
	}, nil
}

func loadVoters(ctx context.Context, c goredis.Cmdable, documentID string) (entities.VotingSnapshot, error) {
	positive, err := c.ZRange(ctx, positiveKey(documentID), 0, -1).Result()
	if err != nil {
		return entities.VotingSnapshot{}, err
	}
	negative, err := c.ZRange(ctx, negativeKey(documentID), 0, -1).Result()
	if err != nil {
		return entities.VotingSnapshot{}, err
	}
	return entities.VotingSnapshot{
		Positive: toVoterIDs(positive),
		Negative: toVoterIDs(negative),
	}, nil
}

func maxScore(ctx context.Context, c goredis.Cmdable, documentID string) (float64, error) {
	var last float64
	for _, key := range []string{positiveKey(documentID), negativeKey(documentID)} {
		top, err := c.ZRevRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil {
			return 0, err
		}
		if len(top) > 0 && top[0].Score > last {
			last = top[0].Score
		}
	}
	return last, nil
}

func writeIndexes(ctx context.Context, pipe goredis.Pipeliner, document entities.Document) {
	score := float64(document.CreatedAt.UTC().UnixMilli())
	pipe.ZAdd(ctx, allDocumentsKey(), goredis.Z{Score: score, Member: document.DocumentID})
	pipe.ZAdd(ctx, kindKey(document.Kind), goredis.Z{Score: score, Member: document.DocumentID})
}

// writeVoters replaces both voter sets and reconciles the per-voter index
// against the previously stored membership.
func writeVoters(ctx context.Context, pipe goredis.Pipeliner, document entities.Document, previous *entities.VotingSnapshot) {
	documentID := document.DocumentID
	pipe.Del(ctx, positiveKey(documentID), negativeKey(documentID))

	current := make(map[entities.VoterID]struct{})
	score := float64(0)
	for _, set := range []struct {
		key    string
		voters []entities.VoterID
	}{
		{positiveKey(documentID), document.Positive()},
		{negativeKey(documentID), document.Negative()},
	} {
		for _, voter := range set.voters {
			score++
			pipe.ZAdd(ctx, set.key, goredis.Z{Score: score, Member: string(voter)})
			pipe.SAdd(ctx, voterKey(string(voter)), documentID)
			current[voter] = struct{}{}
		}
	}
	if previous == nil {
		return
	}
	for _, voter := range append(previous.Positive, previous.Negative...) {
		if _, ok := current[voter]; !ok {
			pipe.SRem(ctx, voterKey(string(voter)), documentID)
		}
	}
}

func metaFromEntity(document entities.Document) metaRecord {
	return metaRecord{
		DocumentID: document.DocumentID,
		Kind:       document.Kind,
		Body:       document.Body,
		AuthorID:   document.AuthorID,
		VoterKind:  document.VoterKind,
		CreatedAt:  document.CreatedAt.UTC(),
		UpdatedAt:  document.UpdatedAt.UTC(),
	}
}

func toVoterIDs(ids []string) []entities.VoterID {
	out := make([]entities.VoterID, 0, len(ids))
	for _, id := range ids {
		out = append(out, entities.VoterID(id))
	}
	return out
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
	r.logger.Error("document voting redis operation failed", fields...)
	return err
}

var _ ports.DocumentRepository = (*Repository)(nil)
var _ ports.VoteApplier = (*Repository)(nil)
