package cacheadapter

import (
	"context"
	"strings"
	"sync"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Repository is a read-through LRU in front of another document repository.
// Entries live at most ttl, which bounds staleness from writers that bypass
// this process. A read that overlaps a write to the same key is not cached.
type Repository struct {
	inner  ports.DocumentRepository
	atomic ports.VoteApplier
	cache  *expirable.LRU[string, entities.Document]

	mu       sync.Mutex
	inflight map[string]*load
}

// load tracks cache-miss reads of one key. generation moves whenever the key
// is written while a read is in flight.
type load struct {
	readers    int
	generation uint64
}

func NewRepository(inner ports.DocumentRepository, size int, ttl time.Duration) (*Repository, error) {
	if size <= 0 {
		return nil, errInvalidSize
	}
	if ttl <= 0 {
		return nil, errInvalidTTL
	}
	repo := &Repository{
		inner:    inner,
		cache:    expirable.NewLRU[string, entities.Document](size, nil, ttl),
		inflight: make(map[string]*load),
	}
	if applier, ok := inner.(ports.VoteApplier); ok {
		repo.atomic = applier
	}
	return repo, nil
}

// Atomic returns the repository as a VoteApplier when the wrapped store
// supports atomic transitions, and nil otherwise.
func (r *Repository) Atomic() ports.VoteApplier {
	if r.atomic == nil {
		return nil
	}
	return r
}

func (r *Repository) Len() int {
	return r.cache.Len()
}

func (r *Repository) CreateDocument(ctx context.Context, document entities.Document) error {
	if err := r.inner.CreateDocument(ctx, document); err != nil {
		return err
	}
	r.store(strings.TrimSpace(document.DocumentID), document)
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	key := strings.TrimSpace(documentID)
	if document, ok := r.cache.Get(key); ok {
		return document, nil
	}

	r.mu.Lock()
	flight, ok := r.inflight[key]
	if !ok {
		flight = &load{}
		r.inflight[key] = flight
	}
	flight.readers++
	generation := flight.generation
	r.mu.Unlock()

	document, err := r.inner.GetDocument(ctx, key)

	r.mu.Lock()
	defer r.mu.Unlock()
	flight.readers--
	if flight.readers == 0 {
		delete(r.inflight, key)
	}
	if err != nil {
		return entities.Document{}, err
	}
	if flight.generation == generation {
		r.cache.Add(key, document)
	}
	return document, nil
}

func (r *Repository) SaveDocument(ctx context.Context, document entities.Document) error {
	key := strings.TrimSpace(document.DocumentID)
	if err := r.inner.SaveDocument(ctx, document); err != nil {
		r.invalidate(key)
		return err
	}
	r.store(key, document)
	return nil
}

func (r *Repository) ListDocuments(ctx context.Context, kind string) ([]entities.Document, error) {
	return r.inner.ListDocuments(ctx, kind)
}

func (r *Repository) ListDocumentsByVoter(ctx context.Context, voterID entities.VoterID) ([]entities.Document, error) {
	return r.inner.ListDocumentsByVoter(ctx, voterID)
}

func (r *Repository) ApplyVote(
	ctx context.Context,
	documentID string,
	voterID entities.VoterID,
	target entities.VoteState,
	updatedAt time.Time,
) (entities.VoteTransition, error) {
	key := strings.TrimSpace(documentID)
	if r.atomic == nil {
		r.invalidate(key)
		return entities.VoteTransition{}, errAtomicUnsupported
	}
	// Concurrent appliers may finish out of order, so the entry is dropped
	// rather than replaced with this caller's post-image.
	transition, err := r.atomic.ApplyVote(ctx, key, voterID, target, updatedAt)
	r.invalidate(key)
	if err != nil {
		return entities.VoteTransition{}, err
	}
	return transition, nil
}

// store caches document and marks overlapping reads of key as stale.
func (r *Repository) store(key string, document entities.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bump(key)
	r.cache.Add(key, document)
}

func (r *Repository) invalidate(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bump(key)
	r.cache.Remove(key)
}

func (r *Repository) bump(key string) {
	if flight, ok := r.inflight[key]; ok {
		flight.generation++
	}
}

var _ ports.DocumentRepository = (*Repository)(nil)
var _ ports.VoteApplier = (*Repository)(nil)
