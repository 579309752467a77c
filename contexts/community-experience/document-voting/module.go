package documentvoting

import (
	"log/slog"

	httpadapter "docvote/contexts/community-experience/document-voting/adapters/http"
	"docvote/contexts/community-experience/document-voting/adapters/memory"
	"docvote/contexts/community-experience/document-voting/application/commands"
	"docvote/contexts/community-experience/document-voting/application/queries"
	"docvote/contexts/community-experience/document-voting/domain/entities"
	"docvote/contexts/community-experience/document-voting/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Votes   commands.VoteUseCase
	Tallies queries.TallyUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Documents ports.DocumentRepository
	// Atomic is optional; when nil votes go through load, mutate, save.
	Atomic    ports.VoteApplier
	Outbox    ports.OutboxWriter
	Metrics   ports.VoteMetrics
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	VoterKind string
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voteUseCase := commands.VoteUseCase{
		Documents: deps.Documents,
		Atomic:    deps.Atomic,
		Outbox:    deps.Outbox,
		Metrics:   deps.Metrics,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Options:   entities.VotingOptions{VoterKind: deps.VoterKind},
		Logger:    deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Documents: deps.Documents,
	}
	return Module{
		Handler: httpadapter.Handler{
			Votes:   voteUseCase,
			Tallies: tallyUseCase,
			Logger:  deps.Logger,
		},
		Votes:   voteUseCase,
		Tallies: tallyUseCase,
	}
}

func NewInMemoryModule(seed []entities.Document, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Documents: store,
		Atomic:    store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
