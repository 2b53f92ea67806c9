package commands

import (
	"encoding/json"
	"time"

	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

func newBallotEnvelope(
	eventID string,
	eventType string,
	ballotID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by ballot so consumers observe one ballot's events in order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "ballot_id",
		PartitionKey:     ballotID,
		Data:             payload,
	}, nil
}

func newLeaderChangedEnvelope(
	eventID string,
	ballotID string,
	previous int,
	current int,
	voteCount uint64,
	occurredAt time.Time,
) (ports.EventEnvelope, error) {
	return newBallotEnvelope(eventID, contractsv1.EventBallotLeaderChanged, ballotID, occurredAt, map[string]any{
		"ballot_id":         ballotID,
		"previous_proposal": previous,
		"proposal":          current,
		"vote_count":        voteCount,
	})
}
