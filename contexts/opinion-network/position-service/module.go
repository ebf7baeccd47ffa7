package positionservice

import (
	"log/slog"

	httpadapter "ballotnet/contexts/opinion-network/position-service/adapters/http"
	"ballotnet/contexts/opinion-network/position-service/adapters/memory"
	"ballotnet/contexts/opinion-network/position-service/application/commands"
	"ballotnet/contexts/opinion-network/position-service/application/queries"
	"ballotnet/contexts/opinion-network/position-service/domain/entities"
	"ballotnet/contexts/opinion-network/position-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Save     commands.SavePositionUseCase
	Toggle   commands.ToggleStanceUseCase
	Merge    commands.MergeUseCase
	Reassign commands.ReassignUseCase
	Retrieve queries.RetrieveUseCase
	Counts   queries.StanceCountsUseCase
	Store    *memory.Store
}

type Dependencies struct {
	Positions ports.PositionRepository
	Resolver  ports.EntityResolver
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	save := commands.SavePositionUseCase{
		Positions: deps.Positions,
		Resolver:  deps.Resolver,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	toggle := commands.ToggleStanceUseCase{
		Positions: deps.Positions,
		Resolver:  deps.Resolver,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	merge := commands.MergeUseCase{
		Positions: deps.Positions,
		Resolver:  deps.Resolver,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	reassign := commands.ReassignUseCase{
		Positions: deps.Positions,
		Resolver:  deps.Resolver,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	retrieve := queries.RetrieveUseCase{Positions: deps.Positions}
	counts := queries.StanceCountsUseCase{Positions: deps.Positions}

	return Module{
		Handler: httpadapter.Handler{
			Save:     save,
			Toggle:   toggle,
			Merge:    merge,
			Reassign: reassign,
			Retrieve: retrieve,
			Counts:   counts,
			Logger:   deps.Logger,
		},
		Save:     save,
		Toggle:   toggle,
		Merge:    merge,
		Reassign: reassign,
		Retrieve: retrieve,
		Counts:   counts,
	}
}

func NewInMemoryModule(seed []entities.Position, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Positions: store,
		Resolver:  store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
