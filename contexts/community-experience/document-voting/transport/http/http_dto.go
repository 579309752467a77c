package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateDocumentRequest struct {
	Kind string `json:"kind"`
	Body string `json:"body"`
}

type TallyResponse struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Total     int `json:"total"`
	Score     int `json:"score"`
}

type DocumentResponse struct {
	DocumentID string        `json:"document_id"`
	Kind       string        `json:"kind"`
	Body       string        `json:"body"`
	AuthorID   string        `json:"author_id,omitempty"`
	VoterKind  string        `json:"voter_kind"`
	Positive   []string      `json:"positive"`
	Negative   []string      `json:"negative"`
	Tally      TallyResponse `json:"tally"`
	CreatedAt  string        `json:"created_at"`
	UpdatedAt  string        `json:"updated_at"`
}

type VoteResponse struct {
	DocumentID string        `json:"document_id"`
	VoterID    string        `json:"voter_id"`
	Previous   string        `json:"previous"`
	Current    string        `json:"current"`
	Changed    bool          `json:"changed"`
	Tally      TallyResponse `json:"tally"`
}

type DocumentTallyResponse struct {
	DocumentID string        `json:"document_id"`
	Tally      TallyResponse `json:"tally"`
}

type VoterStatusResponse struct {
	DocumentID string `json:"document_id"`
	VoterID    string `json:"voter_id"`
	Voted      bool   `json:"voted"`
	Upvoted    bool   `json:"upvoted"`
	Downvoted  bool   `json:"downvoted"`
	State      string `json:"state"`
}

type RankingItem struct {
	DocumentID string        `json:"document_id"`
	Kind       string        `json:"kind"`
	Tally      TallyResponse `json:"tally"`
	Rank       int           `json:"rank"`
}

type RankingResponse struct {
	Items []RankingItem `json:"items"`
}
