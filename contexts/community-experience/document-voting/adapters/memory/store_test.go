package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"docvote/contexts/community-experience/document-voting/adapters/storetest"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDocumentRejectsDuplicates(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.CreateDocument(ctx, entities.Document{DocumentID: "doc-1"}))
	assert.ErrorIs(t, store.CreateDocument(ctx, entities.Document{DocumentID: "doc-1"}), domainerrors.ErrConflict)
}

func TestApplyVoteTouchesUpdatedAtOnlyOnChange(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore([]entities.Document{{DocumentID: "doc-1", CreatedAt: created, UpdatedAt: created}})
	ctx := context.Background()
	later := created.Add(time.Hour)

	transition, err := store.ApplyVote(ctx, "doc-1", "a", entities.VoteStateUpvoted, later)
	require.NoError(t, err)
	assert.True(t, transition.Changed())
	assert.Equal(t, later, transition.Document.UpdatedAt)

	transition, err = store.ApplyVote(ctx, "doc-1", "a", entities.VoteStateUpvoted, later.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transition.Changed())
	assert.Equal(t, later, transition.Document.UpdatedAt)
}

func TestConcurrentVotersKeepSetsDisjoint(t *testing.T) {
	store := NewStore([]entities.Document{{DocumentID: "doc-1"}})
	ctx := context.Background()
	targets := []entities.VoteState{entities.VoteStateUpvoted, entities.VoteStateDownvoted, entities.VoteStateUnvoted}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				voter := entities.VoterID(fmt.Sprintf("v%d", (worker+i)%10))
				_, err := store.ApplyVote(ctx, "doc-1", voter, targets[(worker*i)%3], time.Now())
				assert.NoError(t, err)
			}
		}(worker)
	}
	wg.Wait()

	document, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	for _, id := range document.Positive() {
		assert.NotContains(t, document.Negative(), id)
	}
	assert.Equal(t, document.UpvoteCount()+document.DownvoteCount(), document.TotalVoteCount())
}

func TestListDocumentsByVoterAndKind(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore([]entities.Document{
		{DocumentID: "b", Kind: "comment", CreatedAt: base.Add(time.Minute)},
		{DocumentID: "a", Kind: "comment", CreatedAt: base.Add(time.Minute)},
		{DocumentID: "p", Kind: "post", CreatedAt: base},
	})
	ctx := context.Background()
	for _, id := range []string{"b", "p"} {
		_, err := store.ApplyVote(ctx, id, "v", entities.VoteStateDownvoted, base)
		require.NoError(t, err)
	}

	comments, err := store.ListDocuments(ctx, "comment")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "a", comments[0].DocumentID)

	voted, err := store.ListDocumentsByVoter(ctx, "v")
	require.NoError(t, err)
	require.Len(t, voted, 2)
	assert.Equal(t, "p", voted[0].DocumentID)
	assert.Equal(t, "b", voted[1].DocumentID)
}

func TestAppendOutboxIsIdempotentPerEventID(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	envelope := ports.EventEnvelope{EventID: "e1", EventType: "document.vote_changed", Data: []byte(`{"a":1}`)}

	require.NoError(t, store.AppendOutbox(ctx, envelope))
	require.NoError(t, store.AppendOutbox(ctx, envelope))
	assert.Equal(t, 1, store.PendingOutboxCount())

	envelope.Data = []byte(`{"a":2}`)
	assert.ErrorIs(t, store.AppendOutbox(ctx, envelope), domainerrors.ErrConflict)

	require.NoError(t, store.MarkOutboxPublished(ctx, "e1", time.Now()))
	assert.Equal(t, 0, store.PendingOutboxCount())
	assert.ErrorIs(t, store.MarkOutboxPublished(ctx, "missing", time.Now()), domainerrors.ErrConflict)
}

func TestReserveEventExpires(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	replayed, err := store.ReserveEvent(ctx, "e1", "hash", now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, replayed)

	replayed, err = store.ReserveEvent(ctx, "e1", "hash", now.Add(30*time.Second), now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, replayed)

	replayed, err = store.ReserveEvent(ctx, "e1", "other", now.Add(2*time.Minute), now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, replayed)

	replayed, err = store.ReserveEvent(ctx, "e1", "other", now.Add(3*time.Minute), now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, replayed)
}

func TestReleaseEventFreesReservation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.ReserveEvent(ctx, "e1", "hash", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, store.ReleaseEvent(ctx, "e1"))

	replayed, err := store.ReserveEvent(ctx, "e1", "hash", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Repository {
		return NewStore(nil)
	})
}
