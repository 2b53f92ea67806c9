package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ballotbox/contexts/governance/ballot-engine/adapters/memory"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	failOn string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

type leaderMetrics struct {
	leaders map[string]int
}

func (m *leaderMetrics) ObserveCommand(string, string) {}

func (m *leaderMetrics) SetLeader(ballotID string, proposal int) {
	m.leaders[ballotID] = proposal
}

func seedOutbox(t *testing.T, store *memory.Store, eventIDs ...string) {
	t.Helper()
	ballot, err := entities.NewBallot("ballot-1", "chair", []string{"a"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("new ballot failed: %v", err)
	}
	events := make([]ports.EventEnvelope, 0, len(eventIDs))
	for _, id := range eventIDs {
		events = append(events, ports.EventEnvelope{
			EventID:      id,
			EventType:    contractsv1.EventBallotVoteCast,
			PartitionKey: "ballot-1",
			OccurredAt:   time.Now().UTC(),
		})
	}
	if err := store.CreateBallot(context.Background(), ballot, events); err != nil {
		t.Fatalf("create ballot failed: %v", err)
	}
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	store := memory.NewStore(nil)
	seedOutbox(t, store, "evt-1", "evt-2")
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	published, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if published != 2 || len(publisher.topics) != 2 {
		t.Fatalf("expected 2 published events, got %d (%v)", published, publisher.topics)
	}
	if pending, _ := store.ListPendingOutbox(context.Background(), 10); len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d rows", len(pending))
	}
	if published, _ := relay.RunOnce(context.Background()); published != 0 {
		t.Fatalf("expected idle cycle, got %d", published)
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore(nil)
	seedOutbox(t, store, "evt-1", "evt-2", "evt-3")
	publisher := &capturePublisher{failOn: "evt-2"}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}

	published, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if published != 1 {
		t.Fatalf("expected 1 published before failure, got %d", published)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 2 || pending[0].OutboxID != "evt-2" {
		t.Fatalf("expected evt-2 and evt-3 still pending, got %+v", pending)
	}
}

func TestLeaderConsumerAppliesOnceAndSetsGauge(t *testing.T) {
	store := memory.NewStore(nil)
	metrics := &leaderMetrics{leaders: make(map[string]int)}
	consumer := LeaderChangedConsumer{Dedup: store, Metrics: metrics, Clock: store}

	data, _ := json.Marshal(map[string]any{
		"ballot_id":         "ballot-1",
		"previous_proposal": 0,
		"proposal":          2,
		"vote_count":        3,
	})
	event := ports.EventEnvelope{EventID: "evt-leader", EventType: contractsv1.EventBallotLeaderChanged, Data: data}
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if metrics.leaders["ballot-1"] != 2 {
		t.Fatalf("expected leader 2, got %v", metrics.leaders)
	}

	metrics.leaders["ballot-1"] = 9
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("replayed handle failed: %v", err)
	}
	if metrics.leaders["ballot-1"] != 9 {
		t.Fatalf("expected replay to be skipped")
	}
}

func TestLeaderConsumerDisabled(t *testing.T) {
	consumer := LeaderChangedConsumer{Disabled: true}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("disabled consumer must not subscribe: %v", err)
	}
}
