package system

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// UUIDGenerator issues random UUIDv4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewClock returns the wall clock used outside tests.
func NewClock() clockwork.Clock {
	return clockwork.NewRealClock()
}
