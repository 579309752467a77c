package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "docvote/contexts/community-experience/document-voting/application"
	"docvote/contexts/community-experience/document-voting/application/commands"
	"docvote/contexts/community-experience/document-voting/application/queries"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	httptransport "docvote/contexts/community-experience/document-voting/transport/http"
)

type Handler struct {
	Votes   commands.VoteUseCase
	Tallies queries.TallyUseCase
	Logger  *slog.Logger
}

// CreateDocumentHandler godoc
// @Summary Create a votable document
// @Description Registers a document of the given kind with empty voter sets.
// @Tags document-voting
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Author id"
// @Param request body httptransport.CreateDocumentRequest true "Document"
// @Success 201 {object} httptransport.DocumentResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/documents [post]
func (h Handler) CreateDocumentHandler(
	ctx context.Context,
	authorID string,
	req httptransport.CreateDocumentRequest,
) (httptransport.DocumentResponse, error) {
	document, err := h.Votes.CreateDocument(ctx, commands.CreateDocumentCommand{
		Kind:     req.Kind,
		Body:     req.Body,
		AuthorID: authorID,
	})
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return mapDocument(document), nil
}

// GetDocumentHandler godoc
// @Summary Get document with voter sets
// @Tags document-voting
// @Produce json
// @Param document_id path string true "Document id"
// @Success 200 {object} httptransport.DocumentResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id} [get]
func (h Handler) GetDocumentHandler(ctx context.Context, documentID string) (httptransport.DocumentResponse, error) {
	document, err := h.Tallies.GetDocument(ctx, documentID)
	if err != nil {
		return httptransport.DocumentResponse{}, err
	}
	return mapDocument(document), nil
}

// UpvoteHandler godoc
// @Summary Upvote a document
// @Description Moves the caller into the positive set. Repeating it is a no-op.
// @Tags document-voting
// @Produce json
// @Param X-User-Id header string true "Voter id"
// @Param document_id path string true "Document id"
// @Success 200 {object} httptransport.VoteResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id}/upvote [post]
func (h Handler) UpvoteHandler(ctx context.Context, documentID string, voterID string) (httptransport.VoteResponse, error) {
	return h.vote(ctx, h.Votes.Upvote, documentID, voterID)
}

// DownvoteHandler godoc
// @Summary Downvote a document
// @Tags document-voting
// @Produce json
// @Param X-User-Id header string true "Voter id"
// @Param document_id path string true "Document id"
// @Success 200 {object} httptransport.VoteResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id}/downvote [post]
func (h Handler) DownvoteHandler(ctx context.Context, documentID string, voterID string) (httptransport.VoteResponse, error) {
	return h.vote(ctx, h.Votes.Downvote, documentID, voterID)
}

// UnvoteHandler godoc
// @Summary Withdraw the caller's vote
// @Tags document-voting
// @Produce json
// @Param X-User-Id header string true "Voter id"
// @Param document_id path string true "Document id"
// @Success 200 {object} httptransport.VoteResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id}/vote [delete]
func (h Handler) UnvoteHandler(ctx context.Context, documentID string, voterID string) (httptransport.VoteResponse, error) {
	return h.vote(ctx, h.Votes.Unvote, documentID, voterID)
}

// DocumentTallyHandler godoc
// @Summary Get vote counts for a document
// @Tags document-voting
// @Produce json
// @Param document_id path string true "Document id"
// @Success 200 {object} httptransport.DocumentTallyResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id}/votes [get]
func (h Handler) DocumentTallyHandler(ctx context.Context, documentID string) (httptransport.DocumentTallyResponse, error) {
	tally, err := h.Tallies.DocumentTally(ctx, documentID)
	if err != nil {
		return httptransport.DocumentTallyResponse{}, err
	}
	return httptransport.DocumentTallyResponse{
		DocumentID: documentID,
		Tally:      mapTally(tally),
	}, nil
}

// VoterStatusHandler godoc
// @Summary Get one voter's state on a document
// @Tags document-voting
// @Produce json
// @Param document_id path string true "Document id"
// @Param voter_id path string true "Voter id"
// @Success 200 {object} httptransport.VoterStatusResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/documents/{document_id}/votes/{voter_id} [get]
func (h Handler) VoterStatusHandler(ctx context.Context, documentID string, voterID string) (httptransport.VoterStatusResponse, error) {
	status, err := h.Tallies.VoterStatus(ctx, documentID, entities.VoterID(voterID))
	if err != nil {
		return httptransport.VoterStatusResponse{}, err
	}
	return httptransport.VoterStatusResponse{
		DocumentID: status.DocumentID,
		VoterID:    string(status.VoterID),
		Voted:      status.Voted,
		Upvoted:    status.Upvoted,
		Downvoted:  status.Downvoted,
		State:      string(status.State),
	}, nil
}

// RankingHandler godoc
// @Summary Rank documents by score
// @Description Orders documents by score, then total votes, then id.
// @Tags document-voting
// @Produce json
// @Param kind query string false "Document kind filter"
// @Success 200 {object} httptransport.RankingResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/documents [get]
func (h Handler) RankingHandler(ctx context.Context, kind string) (httptransport.RankingResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("document ranking request received",
		"event", "http_document_ranking_received",
		"module", "community-experience/document-voting",
		"layer", "transport",
		"kind", kind,
	)
	scores, err := h.Tallies.Ranking(ctx, kind)
	if err != nil {
		logger.Error("document ranking request failed",
			"event", "http_document_ranking_failed",
			"module", "community-experience/document-voting",
			"layer", "transport",
			"kind", kind,
			"error", err.Error(),
		)
		return httptransport.RankingResponse{}, err
	}
	items := make([]httptransport.RankingItem, 0, len(scores))
	for i, score := range scores {
		items = append(items, httptransport.RankingItem{
			DocumentID: score.Document.DocumentID,
			Kind:       score.Document.Kind,
			Tally:      mapTally(score.Tally),
			Rank:       i + 1,
		})
	}
	return httptransport.RankingResponse{Items: items}, nil
}

func (h Handler) vote(
	ctx context.Context,
	apply func(context.Context, commands.VoteCommand) (commands.VoteResult, error),
	documentID string,
	voterID string,
) (httptransport.VoteResponse, error) {
	result, err := apply(ctx, commands.VoteCommand{
		DocumentID: documentID,
		Voter:      entities.VoterID(voterID),
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		DocumentID: result.Document.DocumentID,
		VoterID:    voterID,
		Previous:   string(result.Previous),
		Current:    string(result.Current),
		Changed:    result.Changed,
		Tally:      mapTally(result.Document.Tally()),
	}, nil
}

func mapDocument(document entities.Document) httptransport.DocumentResponse {
	return httptransport.DocumentResponse{
		DocumentID: document.DocumentID,
		Kind:       document.Kind,
		Body:       document.Body,
		AuthorID:   document.AuthorID,
		VoterKind:  document.VoterKind,
		Positive:   voterStrings(document.Positive()),
		Negative:   voterStrings(document.Negative()),
		Tally:      mapTally(document.Tally()),
		CreatedAt:  document.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  document.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapTally(tally entities.Tally) httptransport.TallyResponse {
	return httptransport.TallyResponse{
		Upvotes:   tally.Upvotes,
		Downvotes: tally.Downvotes,
		Total:     tally.Total,
		Score:     tally.Score,
	}
}

func voterStrings(ids []entities.VoterID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
