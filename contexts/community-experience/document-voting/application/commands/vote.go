package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "docvote/contexts/community-experience/document-voting/application"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"
)

const VoteChangedEventType = "document.vote_changed"

// VoteCommand targets one voter on one document. Voter may be a bare
// entities.VoterID or any richer value exposing the identifier.
type VoteCommand struct {
	DocumentID string
	Voter      entities.VoterRef
}

// VoteResult carries the persisted document and the voter's state transition.
type VoteResult struct {
	Document entities.Document
	Previous entities.VoteState
	Current  entities.VoteState
	Changed  bool
}

type CreateDocumentCommand struct {
	Kind     string
	Body     string
	AuthorID string
}

// VoteUseCase applies vote transitions and hands the document to the storage
// collaborator. Storage errors are returned exactly as reported.
type VoteUseCase struct {
	Documents ports.DocumentRepository
	// Atomic, when set, replaces the load/mutate/save cycle with a single
	// storage-level set update.
	Atomic  ports.VoteApplier
	Outbox  ports.OutboxWriter
	Metrics ports.VoteMetrics
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Options entities.VotingOptions
	Logger  *slog.Logger
}

func (uc VoteUseCase) Upvote(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	return uc.apply(ctx, cmd, entities.VoteStateUpvoted)
}

func (uc VoteUseCase) Downvote(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	return uc.apply(ctx, cmd, entities.VoteStateDownvoted)
}

func (uc VoteUseCase) Unvote(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	return uc.apply(ctx, cmd, entities.VoteStateUnvoted)
}

// CreateDocument registers a new document with an empty voting state.
func (uc VoteUseCase) CreateDocument(ctx context.Context, cmd CreateDocumentCommand) (entities.Document, error) {
	logger := application.ResolveLogger(uc.Logger)
	kind := strings.ToLower(strings.TrimSpace(cmd.Kind))
	if kind == "" || strings.TrimSpace(cmd.Body) == "" {
		logger.Warn("document create validation failed",
			"event", "document_voting_create_validation_failed",
			"module", "community-experience/document-voting",
			"layer", "application",
			"kind", kind,
		)
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}

	documentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Document{}, err
	}
	now := uc.now()
	document := entities.Document{
		DocumentID: documentID,
		Kind:       kind,
		Body:       strings.TrimSpace(cmd.Body),
		AuthorID:   strings.TrimSpace(cmd.AuthorID),
		VoterKind:  uc.Options.ResolveVoterKind(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Documents.CreateDocument(ctx, document); err != nil {
		logger.Error("document create failed",
			"event", "document_voting_create_failed",
			"module", "community-experience/document-voting",
			"layer", "application",
			"document_id", documentID,
			"error", err.Error(),
		)
		return entities.Document{}, err
	}
	logger.Info("document created",
		"event", "document_voting_document_created",
		"module", "community-experience/document-voting",
		"layer", "application",
		"document_id", document.DocumentID,
		"kind", document.Kind,
		"voter_kind", document.VoterKind,
	)
	return document, nil
}

func (uc VoteUseCase) apply(ctx context.Context, cmd VoteCommand, target entities.VoteState) (VoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	documentID := strings.TrimSpace(cmd.DocumentID)
	voterID, ok := entities.ResolveVoter(cmd.Voter)
	logger.Info("vote processing started",
		"event", "document_voting_vote_started",
		"module", "community-experience/document-voting",
		"layer", "application",
		"document_id", documentID,
		"voter_id", string(voterID),
		"target", string(target),
	)
	if documentID == "" || !ok {
		logger.Warn("vote validation failed",
			"event", "document_voting_vote_validation_failed",
			"module", "community-experience/document-voting",
			"layer", "application",
			"document_id", documentID,
			"voter_id", string(voterID),
		)
		return VoteResult{}, domainerrors.ErrInvalidVoteInput
	}

	now := uc.now()
	transition, err := uc.transition(ctx, documentID, voterID, target, now)
	if err != nil {
		if uc.Metrics != nil {
			uc.Metrics.ObserveVoteFailure(target)
		}
		logger.Error("vote persistence failed",
			"event", "document_voting_vote_failed",
			"module", "community-experience/document-voting",
			"layer", "application",
			"document_id", documentID,
			"voter_id", string(voterID),
			"target", string(target),
			"error", err.Error(),
		)
		return VoteResult{}, err
	}

	changed := transition.Changed()
	if changed {
		if err := uc.appendVoteEvent(ctx, transition, now); err != nil {
			return VoteResult{}, err
		}
	}
	if uc.Metrics != nil {
		uc.Metrics.ObserveVote(target, changed)
	}

	logger.Info("vote applied",
		"event", "document_voting_vote_applied",
		"module", "community-experience/document-voting",
		"layer", "application",
		"document_id", documentID,
		"voter_id", string(voterID),
		"previous", string(transition.Previous),
		"current", string(transition.Current),
		"changed", changed,
		"upvotes", transition.Document.UpvoteCount(),
		"downvotes", transition.Document.DownvoteCount(),
	)
	return VoteResult{
		Document: transition.Document,
		Previous: transition.Previous,
		Current:  transition.Current,
		Changed:  changed,
	}, nil
}

func (uc VoteUseCase) transition(
	ctx context.Context,
	documentID string,
	voterID entities.VoterID,
	target entities.VoteState,
	now time.Time,
) (entities.VoteTransition, error) {
	if uc.Atomic != nil {
		return uc.Atomic.ApplyVote(ctx, documentID, voterID, target, now)
	}

	document, err := uc.Documents.GetDocument(ctx, documentID)
	if err != nil {
		return entities.VoteTransition{}, err
	}
	previous := document.Apply(voterID, target)
	current := document.StateOf(voterID)
	if previous != current {
		document.UpdatedAt = now
	}
	if err := uc.Documents.SaveDocument(ctx, document); err != nil {
		return entities.VoteTransition{}, err
	}
	return entities.VoteTransition{
		Document: document,
		Voter:    voterID,
		Previous: previous,
		Current:  current,
	}, nil
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc VoteUseCase) appendVoteEvent(ctx context.Context, transition entities.VoteTransition, occurredAt time.Time) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	voterKind := transition.Document.VoterKind
	if voterKind == "" {
		voterKind = uc.Options.ResolveVoterKind()
	}
	data := map[string]any{
		"document_id": transition.Document.DocumentID,
		"kind":        transition.Document.Kind,
		"voter_id":    string(transition.Voter),
		"voter_kind":  voterKind,
		"previous":    string(transition.Previous),
		"current":     string(transition.Current),
		"upvotes":     transition.Document.UpvoteCount(),
		"downvotes":   transition.Document.DownvoteCount(),
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	envelope, err := newDocumentEnvelope(eventID, VoteChangedEventType, transition.Document.DocumentID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
