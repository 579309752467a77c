package cacheadapter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cacheadapter "docvote/contexts/community-experience/document-voting/adapters/cache"
	"docvote/contexts/community-experience/document-voting/adapters/memory"
	"docvote/contexts/community-experience/document-voting/adapters/storetest"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepository struct {
	ports.DocumentRepository
	gets    int
	saveErr error
}

func (c *countingRepository) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	c.gets++
	return c.DocumentRepository.GetDocument(ctx, documentID)
}

func (c *countingRepository) SaveDocument(ctx context.Context, document entities.Document) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.DocumentRepository.SaveDocument(ctx, document)
}

func seededStore() *memory.Store {
	return memory.NewStore([]entities.Document{{DocumentID: "doc-1", Kind: "comment", Body: "hello"}})
}

func TestGetDocumentReadsThroughOnce(t *testing.T) {
	inner := &countingRepository{DocumentRepository: seededStore()}
	repo, err := cacheadapter.NewRepository(inner, 8, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		document, err := repo.GetDocument(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "hello", document.Body)
	}
	assert.Equal(t, 1, inner.gets)
	assert.Equal(t, 1, repo.Len())
}

func TestGetDocumentDoesNotCacheMisses(t *testing.T) {
	inner := &countingRepository{DocumentRepository: seededStore()}
	repo, err := cacheadapter.NewRepository(inner, 8, time.Minute)
	require.NoError(t, err)

	_, err = repo.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, domainerrors.ErrDocumentNotFound)
	_, err = repo.GetDocument(context.Background(), "missing")
	require.ErrorIs(t, err, domainerrors.ErrDocumentNotFound)
	assert.Equal(t, 2, inner.gets)
	assert.Equal(t, 0, repo.Len())
}

func TestSaveDocumentRefreshesEntry(t *testing.T) {
	inner := &countingRepository{DocumentRepository: seededStore()}
	repo, err := cacheadapter.NewRepository(inner, 8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	document, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	document.Upvote(entities.VoterID("a"))
	require.NoError(t, repo.SaveDocument(ctx, document))

	cached, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, cached.HasUpvoted(entities.VoterID("a")))
	assert.Equal(t, 1, inner.gets)
}

func TestFailedSaveEvictsEntry(t *testing.T) {
	inner := &countingRepository{DocumentRepository: seededStore()}
	repo, err := cacheadapter.NewRepository(inner, 8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	document, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	inner.saveErr = errors.New("disk full")
	document.Upvote(entities.VoterID("a"))
	require.EqualError(t, repo.SaveDocument(ctx, document), "disk full")

	assert.Equal(t, 0, repo.Len())
	fresh, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, fresh.HasVoted(entities.VoterID("a")))
	assert.Equal(t, 2, inner.gets)
}

func TestApplyVoteDelegatesToAtomicStore(t *testing.T) {
	store := seededStore()
	repo, err := cacheadapter.NewRepository(store, 8, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, repo.Atomic())

	transition, err := repo.Atomic().ApplyVote(context.Background(), "doc-1", "a", entities.VoteStateDownvoted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, entities.VoteStateDownvoted, transition.Current)

	cached, err := repo.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, cached.HasDownvoted(entities.VoterID("a")))

	stored, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.True(t, stored.HasDownvoted(entities.VoterID("a")))
}

func TestAtomicIsNilWithoutAtomicInner(t *testing.T) {
	inner := &countingRepository{DocumentRepository: seededStore()}
	repo, err := cacheadapter.NewRepository(inner, 8, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, repo.Atomic())

	_, err = repo.ApplyVote(context.Background(), "doc-1", "a", entities.VoteStateUpvoted, time.Now())
	assert.Error(t, err)
}

func TestNewRepositoryRejectsInvalidLimits(t *testing.T) {
	_, err := cacheadapter.NewRepository(seededStore(), 0, time.Minute)
	assert.Error(t, err)
	_, err = cacheadapter.NewRepository(seededStore(), 8, 0)
	assert.Error(t, err)
}

// pausingStore holds GetDocument after the read until release is closed.
type pausingStore struct {
	*memory.Store
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	document, err := p.Store.GetDocument(ctx, documentID)
	close(p.read)
	<-p.release
	return document, err
}

func TestReadOverlappingVoteIsNotCached(t *testing.T) {
	store := seededStore()
	paused := &pausingStore{Store: store, read: make(chan struct{}), release: make(chan struct{})}
	repo, err := cacheadapter.NewRepository(paused, 8, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan entities.Document)
	go func() {
		document, err := repo.GetDocument(ctx, "doc-1")
		assert.NoError(t, err)
		done <- document
	}()
	<-paused.read

	_, err = repo.Atomic().ApplyVote(ctx, "doc-1", "u1", entities.VoteStateUpvoted, time.Now())
	require.NoError(t, err)
	close(paused.release)

	stale := <-done
	assert.Equal(t, 0, stale.UpvoteCount())
	assert.Equal(t, 0, repo.Len())

	fresh, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.UpvoteCount())
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	store := seededStore()
	repo, err := cacheadapter.NewRepository(store, 8, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)

	_, err = store.ApplyVote(ctx, "doc-1", "u1", entities.VoteStateDownvoted, time.Now())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		document, err := repo.GetDocument(ctx, "doc-1")
		return err == nil && document.HasDownvoted(entities.VoterID("u1"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository {
		repo, err := cacheadapter.NewRepository(memory.NewStore(nil), 16, time.Minute)
		require.NoError(t, err)
		return repo
	})
}
