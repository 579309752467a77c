package entities

import "time"

// DefaultVoterKind is the voter entity type referenced when none is configured.
const DefaultVoterKind = "User"

// VotingOptions configures the voting behavior attached to a document type.
type VotingOptions struct {
	// VoterKind names the entity type voter identifiers refer to.
	VoterKind string
}

func (o VotingOptions) ResolveVoterKind() string {
	if o.VoterKind == "" {
		return DefaultVoterKind
	}
	return o.VoterKind
}

// Document is the host entity voting is attached to (a comment, a post, ...).
// Voting behavior comes from the embedded VotingState.
type Document struct {
	DocumentID string
	Kind       string
	Body       string
	AuthorID   string
	VoterKind  string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	VotingState
}

// VoteTransition describes the outcome of applying a vote to a document.
type VoteTransition struct {
	Document Document
	Voter    VoterID
	Previous VoteState
	Current  VoteState
}

func (t VoteTransition) Changed() bool {
	return t.Previous != t.Current
}
