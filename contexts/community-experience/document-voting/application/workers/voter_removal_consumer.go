package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	application "docvote/contexts/community-experience/document-voting/application"
	"docvote/contexts/community-experience/document-voting/application/commands"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	"docvote/contexts/community-experience/document-voting/ports"
)

const (
	UserDeletedTopic      = "user.deleted"
	defaultVoterRemovalCG = "document-voting-voter-removal-cg"
)

// VoterRemovalConsumer withdraws every vote of a deleted user so tallies stop
// counting accounts that no longer exist.
type VoterRemovalConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Documents     ports.DocumentRepository
	Votes         commands.VoteUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c VoterRemovalConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultVoterRemovalCG
	}
	if err := c.Subscriber.Subscribe(ctx, UserDeletedTopic, group, c.Handle); err != nil {
		logger.Error("voter removal consumer subscribe failed",
			"event", "document_voting_voter_removal_subscribe_failed",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"topic", UserDeletedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("voter removal consumer subscribed",
		"event", "document_voting_voter_removal_started",
		"module", "community-experience/document-voting",
		"layer", "worker",
		"topic", UserDeletedTopic,
		"consumer_group", group,
	)
	return nil
}

// Handle processes one user.deleted envelope. Replays of an already reserved
// event are skipped. When processing fails the reservation is released, so a
// redelivery runs the removal again.
func (c VoterRemovalConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := c.now()
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now, now.Add(c.dedupTTL()))
	if err != nil {
		logger.Error("user.deleted dedupe failed",
			"event", "document_voting_user_deleted_dedupe_failed",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("user.deleted replay skipped",
			"event", "document_voting_user_deleted_replayed",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	if err := c.removeVoter(ctx, event); err != nil {
		if releaseErr := c.Dedup.ReleaseEvent(ctx, event.EventID); releaseErr != nil {
			logger.Error("user.deleted reservation release failed",
				"event", "document_voting_user_deleted_release_failed",
				"module", "community-experience/document-voting",
				"layer", "worker",
				"event_id", event.EventID,
				"error", releaseErr.Error(),
			)
		}
		return err
	}
	return nil
}

func (c VoterRemovalConsumer) removeVoter(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload struct {
		UserID string `json:"user_id"`
	}
	if err := event.DecodeData(&payload); err != nil {
		logger.Error("user.deleted payload decode failed",
			"event", "document_voting_user_deleted_decode_failed",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	voterID, ok := entities.ResolveVoter(entities.VoterID(payload.UserID))
	if !ok {
		logger.Warn("user.deleted payload has no user id",
			"event", "document_voting_user_deleted_invalid",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	documents, err := c.Documents.ListDocumentsByVoter(ctx, voterID)
	if err != nil {
		logger.Error("user.deleted document lookup failed",
			"event", "document_voting_user_deleted_lookup_failed",
			"module", "community-experience/document-voting",
			"layer", "worker",
			"event_id", event.EventID,
			"voter_id", string(voterID),
			"error", err.Error(),
		)
		return err
	}
	for _, document := range documents {
		if _, err := c.Votes.Unvote(ctx, commands.VoteCommand{
			DocumentID: document.DocumentID,
			Voter:      voterID,
		}); err != nil {
			return err
		}
	}

	logger.Info("user.deleted consumed",
		"event", "document_voting_user_deleted_consumed",
		"module", "community-experience/document-voting",
		"layer", "worker",
		"event_id", event.EventID,
		"voter_id", string(voterID),
		"documents", len(documents),
	)
	return nil
}

func (c VoterRemovalConsumer) now() time.Time {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}
	return now
}

func (c VoterRemovalConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
