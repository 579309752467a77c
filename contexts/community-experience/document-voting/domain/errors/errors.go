package errors

import "errors"

var (
	ErrInvalidVoteInput     = errors.New("invalid vote input")
	ErrInvalidDocumentInput = errors.New("invalid document input")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrConflict             = errors.New("document vote conflict")
)
