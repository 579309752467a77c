package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the process-local implementation of every document-voting port.
// Writes hold the mutex for the whole transition, so ApplyVote is atomic.
type Store struct {
	mu sync.RWMutex

	documents  map[string]entities.Document
	outbox     map[string]outboxRecord
	eventDedup map[string]dedupRecord
}

func NewStore(seed []entities.Document) *Store {
	documents := make(map[string]entities.Document, len(seed))
	for _, document := range seed {
		documents[strings.TrimSpace(document.DocumentID)] = document
	}
	return &Store{
		documents:  documents,
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) CreateDocument(_ context.Context, document entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(document.DocumentID)
	if _, exists := s.documents[key]; exists {
		return domainerrors.ErrConflict
	}
	s.documents[key] = document
	return nil
}

func (s *Store) GetDocument(_ context.Context, documentID string) (entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	document, ok := s.documents[strings.TrimSpace(documentID)]
	if !ok {
		return entities.Document{}, domainerrors.ErrDocumentNotFound
	}
	return document, nil
}

func (s *Store) SaveDocument(_ context.Context, document entities.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[strings.TrimSpace(document.DocumentID)] = document
	return nil
}

func (s *Store) ListDocuments(_ context.Context, kind string) ([]entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kind = strings.TrimSpace(kind)
	items := make([]entities.Document, 0, len(s.documents))
	for _, document := range s.documents {
		if kind == "" || document.Kind == kind {
			items = append(items, document)
		}
	}
	sortDocumentsByCreation(items)
	return items, nil
}

func (s *Store) ListDocumentsByVoter(_ context.Context, voterID entities.VoterID) ([]entities.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Document, 0)
	for _, document := range s.documents {
		if document.HasVoted(voterID) {
			items = append(items, document)
		}
	}
	sortDocumentsByCreation(items)
	return items, nil
}

func (s *Store) ApplyVote(
	_ context.Context,
	documentID string,
	voterID entities.VoterID,
	target entities.VoteState,
	updatedAt time.Time,
) (entities.VoteTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(documentID)
	document, ok := s.documents[key]
	if !ok {
		return entities.VoteTransition{}, domainerrors.ErrDocumentNotFound
	}
	previous := document.Apply(voterID, target)
	current := document.StateOf(voterID)
	if previous != current {
		document.UpdatedAt = updatedAt.UTC()
	}
	s.documents[key] = document
	return entities.VoteTransition{
		Document: document,
		Voter:    voterID,
		Previous: previous,
		Current:  current,
	}, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

// PendingOutboxCount reports rows not yet relayed.
func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, row := range s.outbox {
		if !row.published {
			count++
		}
	}
	return count
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	now time.Time,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok && existing.expiresAt.After(now.UTC()) {
		if existing.payloadHash != strings.TrimSpace(payloadHash) {
			return false, domainerrors.ErrConflict
		}
		return true, nil
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.eventDedup, strings.TrimSpace(eventID))
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func sortDocumentsByCreation(items []entities.Document) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].DocumentID < items[j].DocumentID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var _ ports.DocumentRepository = (*Store)(nil)
var _ ports.VoteApplier = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
