package entities

import (
	"slices"
	"strings"
)

// VoterID identifies an entity that can cast a vote. Equality is by value.
type VoterID string

// VoterID lets a bare identifier be passed wherever a VoterRef is accepted.
func (id VoterID) VoterID() VoterID {
	return id
}

// VoterRef is anything that resolves to a voter identifier: a bare VoterID
// or a richer voter object exposing its identifier.
type VoterRef interface {
	VoterID() VoterID
}

// Voter is the richer voter shape handed over by callers that already loaded
// the user record.
type Voter struct {
	ID   VoterID
	Name string
}

func (v Voter) VoterID() VoterID {
	return v.ID
}

// ResolveVoter normalizes a VoterRef. Nil refs and blank identifiers resolve
// to ("", false).
func ResolveVoter(ref VoterRef) (VoterID, bool) {
	if ref == nil {
		return "", false
	}
	id := VoterID(strings.TrimSpace(string(ref.VoterID())))
	if id == "" {
		return "", false
	}
	return id, true
}

type VoteState string

const (
	VoteStateUnvoted   VoteState = "unvoted"
	VoteStateUpvoted   VoteState = "upvoted"
	VoteStateDownvoted VoteState = "downvoted"
)

func (s VoteState) Valid() bool {
	switch s {
	case VoteStateUnvoted, VoteStateUpvoted, VoteStateDownvoted:
		return true
	default:
		return false
	}
}

// VotingState holds the positive and negative voter sets of one document.
// A voter never appears in both sets. The zero value is an empty state.
type VotingState struct {
	positive []VoterID
	negative []VoterID
}

// Upvote moves the voter into the positive set.
func (s *VotingState) Upvote(ref VoterRef) {
	id, ok := ResolveVoter(ref)
	if !ok {
		return
	}
	s.negative = pull(s.negative, id)
	s.positive = addToSet(s.positive, id)
}

// Downvote moves the voter into the negative set.
func (s *VotingState) Downvote(ref VoterRef) {
	id, ok := ResolveVoter(ref)
	if !ok {
		return
	}
	s.positive = pull(s.positive, id)
	s.negative = addToSet(s.negative, id)
}

// Unvote removes the voter from both sets.
func (s *VotingState) Unvote(ref VoterRef) {
	id, ok := ResolveVoter(ref)
	if !ok {
		return
	}
	s.positive = pull(s.positive, id)
	s.negative = pull(s.negative, id)
}

// Apply drives the voter to target and returns the state it was in before.
// Unknown targets leave the state untouched.
func (s *VotingState) Apply(ref VoterRef, target VoteState) VoteState {
	previous := s.StateOf(ref)
	switch target {
	case VoteStateUpvoted:
		s.Upvote(ref)
	case VoteStateDownvoted:
		s.Downvote(ref)
	case VoteStateUnvoted:
		s.Unvote(ref)
	}
	return previous
}

func (s *VotingState) HasVoted(ref VoterRef) bool {
	return s.HasUpvoted(ref) || s.HasDownvoted(ref)
}

func (s *VotingState) HasUpvoted(ref VoterRef) bool {
	id, ok := ResolveVoter(ref)
	return ok && slices.Contains(s.positive, id)
}

func (s *VotingState) HasDownvoted(ref VoterRef) bool {
	id, ok := ResolveVoter(ref)
	return ok && slices.Contains(s.negative, id)
}

func (s *VotingState) StateOf(ref VoterRef) VoteState {
	switch {
	case s.HasUpvoted(ref):
		return VoteStateUpvoted
	case s.HasDownvoted(ref):
		return VoteStateDownvoted
	default:
		return VoteStateUnvoted
	}
}

func (s *VotingState) UpvoteCount() int {
	return len(s.positive)
}

func (s *VotingState) DownvoteCount() int {
	return len(s.negative)
}

// TotalVoteCount is exact because the two sets are disjoint.
func (s *VotingState) TotalVoteCount() int {
	return s.UpvoteCount() + s.DownvoteCount()
}

// Positive returns the upvoters in insertion order.
func (s *VotingState) Positive() []VoterID {
	return append(make([]VoterID, 0, len(s.positive)), s.positive...)
}

// Negative returns the downvoters in insertion order.
func (s *VotingState) Negative() []VoterID {
	return append(make([]VoterID, 0, len(s.negative)), s.negative...)
}

func (s *VotingState) Tally() Tally {
	return Tally{
		Upvotes:   s.UpvoteCount(),
		Downvotes: s.DownvoteCount(),
		Total:     s.TotalVoteCount(),
		Score:     s.UpvoteCount() - s.DownvoteCount(),
	}
}

// VotingSnapshot is the storage shape of a VotingState.
type VotingSnapshot struct {
	Positive []VoterID `json:"positive"`
	Negative []VoterID `json:"negative"`
}

func (s *VotingState) Snapshot() VotingSnapshot {
	return VotingSnapshot{
		Positive: s.Positive(),
		Negative: s.Negative(),
	}
}

// RestoreVotingState rebuilds a state from stored sets. Positive entries are
// replayed first, so a voter listed in both sets ends up downvoted.
func RestoreVotingState(snapshot VotingSnapshot) VotingState {
	var state VotingState
	for _, id := range snapshot.Positive {
		state.Upvote(id)
	}
	for _, id := range snapshot.Negative {
		state.Downvote(id)
	}
	return state
}

// Tally is the derived vote count view of a VotingState.
type Tally struct {
	Upvotes   int
	Downvotes int
	Total     int
	Score     int
}

// addToSet and pull never write into the backing array they were given, so
// copies of a Document do not observe each other's mutations.
func addToSet(set []VoterID, id VoterID) []VoterID {
	if slices.Contains(set, id) {
		return set
	}
	return append(slices.Clip(set), id)
}

func pull(set []VoterID, id VoterID) []VoterID {
	if !slices.Contains(set, id) {
		return set
	}
	out := make([]VoterID, 0, len(set)-1)
	for _, item := range set {
		if item != id {
			out = append(out, item)
		}
	}
	return out
}
