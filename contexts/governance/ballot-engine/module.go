package ballotengine

import (
	"log/slog"
	"time"

	httpadapter "ballotbox/contexts/governance/ballot-engine/adapters/http"
	"ballotbox/contexts/governance/ballot-engine/adapters/identity"
	"ballotbox/contexts/governance/ballot-engine/adapters/memory"
	"ballotbox/contexts/governance/ballot-engine/application/commands"
	"ballotbox/contexts/governance/ballot-engine/application/queries"
	"ballotbox/contexts/governance/ballot-engine/application/workers"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Relay   workers.OutboxRelay
	Leader  workers.LeaderChangedConsumer
	Store   *memory.Store
}

type Dependencies struct {
	Ballots        ports.BallotRepository
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxRepository
	Dedup          ports.EventDedupStore
	Publisher      ports.EventPublisher
	Subscriber     ports.EventSubscriber
	Addresses      ports.AddressNormalizer
	Metrics        ports.Metrics
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	DisableLeader  bool
	Logger         *slog.Logger
}

func NewModule(deps Dependencies) Module {
	ballotUseCase := commands.BallotUseCase{
		Ballots:        deps.Ballots,
		Idempotency:    deps.Idempotency,
		Addresses:      deps.Addresses,
		Metrics:        deps.Metrics,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Ballots:   deps.Ballots,
		Addresses: deps.Addresses,
	}
	return Module{
		Handler: httpadapter.Handler{
			Ballots: ballotUseCase,
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Leader: workers.LeaderChangedConsumer{
			Subscriber: deps.Subscriber,
			Dedup:      deps.Dedup,
			Metrics:    deps.Metrics,
			Clock:      deps.Clock,
			Disabled:   deps.DisableLeader,
			Logger:     deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. Event bus and
// metrics stay unset; callers that need them use NewModule.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(nil)
	module := NewModule(Dependencies{
		Ballots:        store,
		Idempotency:    store,
		Outbox:         store,
		Dedup:          store,
		Addresses:      identity.AddressNormalizer{},
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
