package networkscoreservice

import (
	"log/slog"

	httpadapter "ballotnet/contexts/opinion-network/network-score-service/adapters/http"
	"ballotnet/contexts/opinion-network/network-score-service/adapters/memory"
	"ballotnet/contexts/opinion-network/network-score-service/application/commands"
	"ballotnet/contexts/opinion-network/network-score-service/application/queries"
	"ballotnet/contexts/opinion-network/network-score-service/application/workers"
	"ballotnet/contexts/opinion-network/network-score-service/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	Rebuild     commands.RebuildUseCase
	Incremental commands.IncrementalUseCase
	Read        queries.ReadUseCase
	Coordinator *commands.RebuildCoordinator
	Store       *memory.Store
}

type Dependencies struct {
	Entries     ports.ScoreRepository
	Positions   ports.PositionReader
	SocialGraph ports.SocialGraphProvider
	Ballot      ports.BallotProvider
	Links       ports.VoterLinkResolver
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Parallelism int
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	coordinator := commands.NewRebuildCoordinator()
	rebuild := commands.RebuildUseCase{
		Entries:     deps.Entries,
		Positions:   deps.Positions,
		SocialGraph: deps.SocialGraph,
		Ballot:      deps.Ballot,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Coordinator: coordinator,
		Parallelism: deps.Parallelism,
		Logger:      deps.Logger,
	}
	incremental := commands.IncrementalUseCase{
		Entries:     deps.Entries,
		Positions:   deps.Positions,
		Links:       deps.Links,
		Ballot:      deps.Ballot,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Coordinator: coordinator,
		Logger:      deps.Logger,
	}
	read := queries.ReadUseCase{
		Entries:     deps.Entries,
		Coordinator: coordinator,
	}

	return Module{
		Handler: httpadapter.Handler{
			Rebuild: rebuild,
			Read:    read,
			Logger:  deps.Logger,
		},
		Rebuild:     rebuild,
		Incremental: incremental,
		Read:        read,
		Coordinator: coordinator,
	}
}

// NewRelationshipConsumer builds the worker that keeps the cache warm from
// social graph events.
func (m Module) NewRelationshipConsumer(
	subscriber ports.EventSubscriber,
	dedup ports.EventDedupStore,
	clock ports.Clock,
	logger *slog.Logger,
) workers.RelationshipConsumer {
	return workers.RelationshipConsumer{
		Subscriber:  subscriber,
		Dedup:       dedup,
		Incremental: m.Incremental,
		Rebuild:     m.Rebuild,
		Clock:       clock,
		Logger:      logger,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Entries:     store,
		Positions:   store,
		SocialGraph: store,
		Ballot:      store,
		Links:       store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
