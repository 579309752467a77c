package entities_test

import (
	"math/rand"
	"testing"

	"docvote/contexts/community-experience/document-voting/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpvoteMovesVoterToPositiveSet(t *testing.T) {
	var state entities.VotingState
	author := entities.Voter{ID: "author-1", Name: "Ada"}

	state.Upvote(author)

	assert.Equal(t, []entities.VoterID{"author-1"}, state.Positive())
	assert.Empty(t, state.Negative())
}

func TestTransitionsAreIdempotent(t *testing.T) {
	var state entities.VotingState

	state.Upvote(entities.VoterID("a"))
	state.Upvote(entities.VoterID("a"))
	assert.Equal(t, 1, state.UpvoteCount())
	assert.Equal(t, 0, state.DownvoteCount())

	state.Downvote(entities.VoterID("a"))
	state.Downvote(entities.VoterID("a"))
	assert.Equal(t, 0, state.UpvoteCount())
	assert.Equal(t, 1, state.DownvoteCount())

	state.Unvote(entities.VoterID("a"))
	state.Unvote(entities.VoterID("a"))
	assert.Equal(t, 0, state.TotalVoteCount())
}

func TestDownvoteThenUpvoteLeavesVoterOnlyPositive(t *testing.T) {
	var state entities.VotingState

	state.Downvote(entities.VoterID("v"))
	state.Upvote(entities.VoterID("v"))

	assert.True(t, state.HasUpvoted(entities.VoterID("v")))
	assert.False(t, state.HasDownvoted(entities.VoterID("v")))
	assert.Equal(t, []entities.VoterID{"v"}, state.Positive())
	assert.Empty(t, state.Negative())
}

func TestScenarioAcrossTwoVoters(t *testing.T) {
	var state entities.VotingState
	a := entities.VoterID("A")
	b := entities.VoterID("B")

	state.Upvote(a)
	assert.Equal(t, []entities.VoterID{"A"}, state.Positive())
	assert.Empty(t, state.Negative())

	state.Downvote(b)
	assert.Equal(t, []entities.VoterID{"A"}, state.Positive())
	assert.Equal(t, []entities.VoterID{"B"}, state.Negative())

	state.Upvote(b)
	assert.Equal(t, []entities.VoterID{"A", "B"}, state.Positive())
	assert.Empty(t, state.Negative())

	state.Unvote(a)
	assert.Equal(t, []entities.VoterID{"B"}, state.Positive())
	assert.Empty(t, state.Negative())
	assert.Equal(t, 1, state.TotalVoteCount())
}

func TestHasUpvotedFollowsTransitions(t *testing.T) {
	var state entities.VotingState
	a := entities.VoterID("A")

	assert.False(t, state.HasUpvoted(a))
	state.Upvote(a)
	assert.True(t, state.HasUpvoted(a))
	state.Downvote(a)
	assert.False(t, state.HasUpvoted(a))
	assert.True(t, state.HasDownvoted(a))
}

func TestVoterObjectAndBareIdentifierAreInterchangeable(t *testing.T) {
	var state entities.VotingState
	voter := entities.Voter{ID: "user-7", Name: "Lin"}

	state.Upvote(voter)
	assert.True(t, state.HasUpvoted(entities.VoterID("user-7")))
	assert.True(t, state.HasVoted(entities.VoterID("user-7")))

	state.Downvote(entities.VoterID("user-7"))
	assert.True(t, state.HasDownvoted(voter))
	assert.False(t, state.HasUpvoted(voter))

	state.Unvote(voter)
	assert.False(t, state.HasVoted(entities.VoterID("user-7")))
}

func TestBlankAndNilVotersAreIgnored(t *testing.T) {
	var state entities.VotingState

	state.Upvote(nil)
	state.Downvote(entities.VoterID("  "))
	state.Unvote(entities.Voter{})

	assert.Equal(t, 0, state.TotalVoteCount())
	assert.False(t, state.HasVoted(nil))
	assert.Equal(t, entities.VoteStateUnvoted, state.StateOf(nil))
}

func TestCountsFollowVoteChanges(t *testing.T) {
	var state entities.VotingState
	author := entities.VoterID("author")
	other := entities.VoterID("other")

	state.Downvote(author)
	assert.Equal(t, 0, state.UpvoteCount())
	state.Upvote(other)
	assert.Equal(t, 1, state.UpvoteCount())
	state.Upvote(author)
	assert.Equal(t, 2, state.UpvoteCount())
	assert.Equal(t, 0, state.DownvoteCount())

	tally := state.Tally()
	assert.Equal(t, entities.Tally{Upvotes: 2, Downvotes: 0, Total: 2, Score: 2}, tally)

	state.Downvote(other)
	assert.Equal(t, 2, state.TotalVoteCount())
	assert.Equal(t, 0, state.Tally().Score)
}

func TestApplyReturnsPreviousState(t *testing.T) {
	var state entities.VotingState
	v := entities.VoterID("v")

	assert.Equal(t, entities.VoteStateUnvoted, state.Apply(v, entities.VoteStateDownvoted))
	assert.Equal(t, entities.VoteStateDownvoted, state.Apply(v, entities.VoteStateUpvoted))
	assert.Equal(t, entities.VoteStateUpvoted, state.Apply(v, entities.VoteStateUpvoted))
	assert.Equal(t, entities.VoteStateUpvoted, state.Apply(v, entities.VoteStateUnvoted))
	assert.Equal(t, entities.VoteStateUnvoted, state.StateOf(v))

	state.Upvote(v)
	assert.Equal(t, entities.VoteStateUpvoted, state.Apply(v, entities.VoteState("sideways")))
	assert.Equal(t, entities.VoteStateUpvoted, state.StateOf(v))
}

func TestTransitionTable(t *testing.T) {
	ops := map[string]func(*entities.VotingState, entities.VoterRef){
		"upvote":   (*entities.VotingState).Upvote,
		"downvote": (*entities.VotingState).Downvote,
		"unvote":   (*entities.VotingState).Unvote,
	}
	setup := map[entities.VoteState]func(*entities.VotingState, entities.VoterRef){
		entities.VoteStateUnvoted:   func(*entities.VotingState, entities.VoterRef) {},
		entities.VoteStateUpvoted:   (*entities.VotingState).Upvote,
		entities.VoteStateDownvoted: (*entities.VotingState).Downvote,
	}
	cases := []struct {
		from entities.VoteState
		op   string
		to   entities.VoteState
	}{
		{entities.VoteStateUnvoted, "upvote", entities.VoteStateUpvoted},
		{entities.VoteStateUnvoted, "downvote", entities.VoteStateDownvoted},
		{entities.VoteStateUnvoted, "unvote", entities.VoteStateUnvoted},
		{entities.VoteStateUpvoted, "upvote", entities.VoteStateUpvoted},
		{entities.VoteStateUpvoted, "downvote", entities.VoteStateDownvoted},
		{entities.VoteStateUpvoted, "unvote", entities.VoteStateUnvoted},
		{entities.VoteStateDownvoted, "upvote", entities.VoteStateUpvoted},
		{entities.VoteStateDownvoted, "downvote", entities.VoteStateDownvoted},
		{entities.VoteStateDownvoted, "unvote", entities.VoteStateUnvoted},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+tc.op, func(t *testing.T) {
			var state entities.VotingState
			v := entities.VoterID("v")
			setup[tc.from](&state, v)
			ops[tc.op](&state, v)
			assert.Equal(t, tc.to, state.StateOf(v))
		})
	}
}

func TestRandomSequencesKeepSetsDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	voters := []entities.VoterID{"a", "b", "c", "d", "e"}
	var state entities.VotingState

	for i := 0; i < 2000; i++ {
		v := voters[rng.Intn(len(voters))]
		switch rng.Intn(3) {
		case 0:
			state.Upvote(v)
		case 1:
			state.Downvote(v)
		default:
			state.Unvote(v)
		}

		positive := state.Positive()
		negative := state.Negative()
		for _, id := range positive {
			require.NotContains(t, negative, id, "voter %s present in both sets at step %d", id, i)
		}
		require.Equal(t, len(positive)+len(negative), state.TotalVoteCount())
		require.Equal(t, state.UpvoteCount()+state.DownvoteCount(), state.TotalVoteCount())
	}
}

func TestUnvoteAlwaysClearsVoter(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var state entities.VotingState
		v := entities.VoterID("v")
		for j := 0; j < rng.Intn(10); j++ {
			if rng.Intn(2) == 0 {
				state.Upvote(v)
			} else {
				state.Downvote(v)
			}
		}
		state.Unvote(v)
		require.False(t, state.HasVoted(v))
	}
}

func TestRestoreVotingStateKeepsInvariant(t *testing.T) {
	state := entities.RestoreVotingState(entities.VotingSnapshot{
		Positive: []entities.VoterID{"a", "b", "a"},
		Negative: []entities.VoterID{"b", "c"},
	})

	assert.Equal(t, []entities.VoterID{"a"}, state.Positive())
	assert.Equal(t, []entities.VoterID{"b", "c"}, state.Negative())
	assert.Equal(t, entities.VoteStateDownvoted, state.StateOf(entities.VoterID("b")))
}

func TestDocumentCopiesDoNotShareVoterSets(t *testing.T) {
	original := entities.Document{DocumentID: "doc-1"}
	original.Upvote(entities.VoterID("a"))
	original.Upvote(entities.VoterID("b"))

	copied := original
	copied.Downvote(entities.VoterID("a"))
	copied.Upvote(entities.VoterID("c"))

	assert.Equal(t, []entities.VoterID{"a", "b"}, original.Positive())
	assert.Empty(t, original.Negative())
	assert.Equal(t, []entities.VoterID{"b", "c"}, copied.Positive())
	assert.Equal(t, []entities.VoterID{"a"}, copied.Negative())
}

func TestVotingOptionsDefaultVoterKind(t *testing.T) {
	assert.Equal(t, "User", entities.VotingOptions{}.ResolveVoterKind())
	assert.Equal(t, "Member", entities.VotingOptions{VoterKind: "Member"}.ResolveVoterKind())
}

func TestVoteTransitionChanged(t *testing.T) {
	assert.True(t, entities.VoteTransition{Previous: entities.VoteStateUnvoted, Current: entities.VoteStateUpvoted}.Changed())
	assert.False(t, entities.VoteTransition{Previous: entities.VoteStateUpvoted, Current: entities.VoteStateUpvoted}.Changed())
}
