// Package storetest holds the behaviour every document repository must share.
// Adapter tests call Run with a factory that returns an empty repository.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Repository is the port set a storage backend under test provides.
type Repository interface {
	ports.DocumentRepository
	ports.VoteApplier
}

var base = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func Run(t *testing.T, newRepository func(t *testing.T) Repository) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepository(t)) })
	t.Run("SaveRoundTripsVoterOrder", func(t *testing.T) { testSaveRoundTrip(t, newRepository(t)) })
	t.Run("ApplyVoteTransitions", func(t *testing.T) { testApplyVote(t, newRepository(t)) })
	t.Run("ListByKindAndVoter", func(t *testing.T) { testLists(t, newRepository(t)) })
	t.Run("ConcurrentApplyVote", func(t *testing.T) { testConcurrentApply(t, newRepository(t)) })
}

func newDocument(id string, kind string, offset time.Duration) entities.Document {
	created := base.Add(offset)
	return entities.Document{
		DocumentID: id,
		Kind:       kind,
		Body:       "body of " + id,
		AuthorID:   "author",
		VoterKind:  entities.DefaultVoterKind,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func testCreateAndGet(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateDocument(ctx, newDocument("doc-1", "comment", 0)))
	assert.ErrorIs(t, repo.CreateDocument(ctx, newDocument("doc-1", "comment", 0)), domainerrors.ErrConflict)

	document, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "comment", document.Kind)
	assert.Equal(t, "body of doc-1", document.Body)
	assert.True(t, base.Equal(document.CreatedAt))
	assert.Zero(t, document.TotalVoteCount())

	_, err = repo.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrDocumentNotFound)
}

func testSaveRoundTrip(t *testing.T, repo Repository) {
	ctx := context.Background()
	document := newDocument("doc-1", "comment", 0)
	require.NoError(t, repo.CreateDocument(ctx, document))

	document.Upvote(entities.VoterID("c"))
	document.Upvote(entities.VoterID("a"))
	document.Downvote(entities.VoterID("b"))
	document.Upvote(entities.VoterID("b"))
	document.Downvote(entities.VoterID("z"))
	require.NoError(t, repo.SaveDocument(ctx, document))

	stored, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.VoterID{"c", "a", "b"}, stored.Positive())
	assert.Equal(t, []entities.VoterID{"z"}, stored.Negative())

	stored.Unvote(entities.VoterID("a"))
	require.NoError(t, repo.SaveDocument(ctx, stored))
	voted, err := repo.ListDocumentsByVoter(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, voted)
}

func testApplyVote(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateDocument(ctx, newDocument("doc-1", "comment", 0)))
	later := base.Add(time.Hour)

	steps := []struct {
		target   entities.VoteState
		previous entities.VoteState
		changed  bool
	}{
		{entities.VoteStateUpvoted, entities.VoteStateUnvoted, true},
		{entities.VoteStateUpvoted, entities.VoteStateUpvoted, false},
		{entities.VoteStateDownvoted, entities.VoteStateUpvoted, true},
		{entities.VoteStateUnvoted, entities.VoteStateDownvoted, true},
		{entities.VoteStateUnvoted, entities.VoteStateUnvoted, false},
	}
	for i, step := range steps {
		transition, err := repo.ApplyVote(ctx, "doc-1", "v", step.target, later)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.previous, transition.Previous, "step %d", i)
		assert.Equal(t, step.target, transition.Current, "step %d", i)
		assert.Equal(t, step.changed, transition.Changed(), "step %d", i)

		stored, err := repo.GetDocument(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, step.target, stored.StateOf(entities.VoterID("v")), "step %d", i)
	}

	_, err := repo.ApplyVote(ctx, "missing", "v", entities.VoteStateUpvoted, later)
	assert.ErrorIs(t, err, domainerrors.ErrDocumentNotFound)
}

func testLists(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateDocument(ctx, newDocument("c-2", "comment", 2*time.Minute)))
	require.NoError(t, repo.CreateDocument(ctx, newDocument("c-1", "comment", time.Minute)))
	require.NoError(t, repo.CreateDocument(ctx, newDocument("p-1", "post", 0)))

	for _, id := range []string{"c-2", "p-1"} {
		_, err := repo.ApplyVote(ctx, id, "voter", entities.VoteStateDownvoted, base)
		require.NoError(t, err)
	}

	comments, err := repo.ListDocuments(ctx, "comment")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, ids(comments))

	all, err := repo.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "c-1", "c-2"}, ids(all))

	voted, err := repo.ListDocumentsByVoter(ctx, "voter")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "c-2"}, ids(voted))
	assert.True(t, voted[1].HasDownvoted(entities.VoterID("voter")))
}

func testConcurrentApply(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateDocument(ctx, newDocument("doc-1", "comment", 0)))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := entities.VoteStateUpvoted
			if i%2 == 1 {
				target = entities.VoteStateDownvoted
			}
			voter := entities.VoterID(fmt.Sprintf("voter-%d", i))
			for attempt := 0; attempt < 5; attempt++ {
				_, err := repo.ApplyVote(ctx, "doc-1", voter, target, base)
				if err == nil {
					return
				}
				if !assert.ErrorIs(t, err, domainerrors.ErrConflict) {
					return
				}
			}
			t.Errorf("voter %s never applied", voter)
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.UpvoteCount())
	assert.Equal(t, 5, stored.DownvoteCount())
}

func ids(documents []entities.Document) []string {
	out := make([]string, 0, len(documents))
	for _, document := range documents {
		out = append(out, document.DocumentID)
	}
	return out
}
