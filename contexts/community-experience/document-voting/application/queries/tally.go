package queries

import (
	"context"
	"sort"
	"strings"

	"docvote/contexts/community-experience/document-voting/domain/entities"
	domainerrors "docvote/contexts/community-experience/document-voting/domain/errors"
	"docvote/contexts/community-experience/document-voting/ports"
)

// VoterStatus answers the voted/upvoted/downvoted questions for one voter.
type VoterStatus struct {
	DocumentID string
	VoterID    entities.VoterID
	Voted      bool
	Upvoted    bool
	Downvoted  bool
	State      entities.VoteState
}

type DocumentScore struct {
	Document entities.Document
	Tally    entities.Tally
}

type TallyUseCase struct {
	Documents ports.DocumentRepository
}

func (uc TallyUseCase) GetDocument(ctx context.Context, documentID string) (entities.Document, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return entities.Document{}, domainerrors.ErrInvalidDocumentInput
	}
	return uc.Documents.GetDocument(ctx, documentID)
}

func (uc TallyUseCase) DocumentTally(ctx context.Context, documentID string) (entities.Tally, error) {
	document, err := uc.GetDocument(ctx, documentID)
	if err != nil {
		return entities.Tally{}, err
	}
	return document.Tally(), nil
}

func (uc TallyUseCase) VoterStatus(ctx context.Context, documentID string, voter entities.VoterRef) (VoterStatus, error) {
	voterID, ok := entities.ResolveVoter(voter)
	if !ok {
		return VoterStatus{}, domainerrors.ErrInvalidVoteInput
	}
	document, err := uc.GetDocument(ctx, documentID)
	if err != nil {
		return VoterStatus{}, err
	}
	return VoterStatus{
		DocumentID: document.DocumentID,
		VoterID:    voterID,
		Voted:      document.HasVoted(voterID),
		Upvoted:    document.HasUpvoted(voterID),
		Downvoted:  document.HasDownvoted(voterID),
		State:      document.StateOf(voterID),
	}, nil
}

// Ranking orders documents of a kind by score, then by vote volume, then id.
func (uc TallyUseCase) Ranking(ctx context.Context, kind string) ([]DocumentScore, error) {
	documents, err := uc.Documents.ListDocuments(ctx, strings.ToLower(strings.TrimSpace(kind)))
	if err != nil {
		return nil, err
	}
	scores := make([]DocumentScore, 0, len(documents))
	for _, document := range documents {
		scores = append(scores, DocumentScore{
			Document: document,
			Tally:    document.Tally(),
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Tally.Score != scores[j].Tally.Score {
			return scores[i].Tally.Score > scores[j].Tally.Score
		}
		if scores[i].Tally.Total != scores[j].Tally.Total {
			return scores[i].Tally.Total > scores[j].Tally.Total
		}
		return scores[i].Document.DocumentID < scores[j].Document.DocumentID
	})
	return scores, nil
}
