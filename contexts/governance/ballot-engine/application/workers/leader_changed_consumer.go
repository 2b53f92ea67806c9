package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const defaultLeaderConsumerGroup = "ballot-engine-leader-cg"

// LeaderChangedConsumer keeps the leading-proposal gauge in step with
// ballot.leader_changed events. Delivery is at least once, so every event id
// is reserved before it is applied.
type LeaderChangedConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Metrics       ports.Metrics
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c LeaderChangedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("ballot leader consumer disabled by feature flag",
			"event", "ballot_leader_consumer_disabled",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultLeaderConsumerGroup
	}
	if err := c.Subscriber.Subscribe(ctx, contractsv1.EventBallotLeaderChanged, group, c.Handle); err != nil {
		logger.Error("ballot leader consumer subscribe failed",
			"event", "ballot_leader_consumer_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", contractsv1.EventBallotLeaderChanged,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("ballot leader consumer subscribed",
		"event", "ballot_leader_consumer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c LeaderChangedConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	duplicate, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("ballot leader event dedupe failed",
			"event", "ballot_leader_event_dedupe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if duplicate {
		logger.Debug("ballot leader event replay skipped",
			"event", "ballot_leader_event_replayed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		BallotID         string `json:"ballot_id"`
		PreviousProposal int    `json:"previous_proposal"`
		Proposal         int    `json:"proposal"`
		VoteCount        uint64 `json:"vote_count"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("ballot leader payload decode failed",
			"event", "ballot_leader_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if c.Metrics != nil {
		c.Metrics.SetLeader(payload.BallotID, payload.Proposal)
	}
	logger.Info("ballot leader changed",
		"event", "ballot_leader_changed_consumed",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"ballot_id", payload.BallotID,
		"previous_proposal", payload.PreviousProposal,
		"proposal", payload.Proposal,
		"vote_count", payload.VoteCount,
	)
	return nil
}

func (c LeaderChangedConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c LeaderChangedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
