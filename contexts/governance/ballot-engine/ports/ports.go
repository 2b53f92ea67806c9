package ports

import (
	"context"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

type EventEnvelope = contractsv1.Envelope

// BallotMutation runs against a private copy of the ballot. Returning an error
// discards the copy; otherwise the copy and the returned events are committed
// together.
type BallotMutation func(ballot *entities.Ballot) ([]EventEnvelope, error)

// BallotRepository persists ballots. UpdateBallot must serialize mutations of
// the same ballot and bump Version on commit.
type BallotRepository interface {
	CreateBallot(ctx context.Context, ballot entities.Ballot, events []EventEnvelope) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	ListBallots(ctx context.Context) ([]entities.Ballot, error)
	UpdateBallot(ctx context.Context, ballotID string, mutate BallotMutation) (entities.Ballot, error)
}

type IdempotencyRecord struct {
	Key             string
	Operation       string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// EventDedupStore reserves an event id for one consumer; a second reservation
// of the same id reports duplicate=true.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (duplicate bool, err error)
}

// AddressNormalizer turns caller supplied voter identifiers into registry keys.
type AddressNormalizer interface {
	Normalize(raw string) (string, error)
}

// Metrics receives command outcomes and leader changes.
type Metrics interface {
	ObserveCommand(operation string, outcome string)
	SetLeader(ballotID string, proposal int)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
