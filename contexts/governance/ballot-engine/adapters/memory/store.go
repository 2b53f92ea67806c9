package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  uint64
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-process adapter for every ballot-engine port. One mutex
// guards all maps, which serializes ballot mutations together with their
// outbox rows.
type Store struct {
	mu sync.RWMutex

	ballots     map[string]entities.Ballot
	idempotency map[string]ports.IdempotencyRecord
	outbox      map[string]outboxRecord
	eventDedup  map[string]dedupRecord
	sequence    uint64
}

func NewStore(seed []entities.Ballot) *Store {
	ballots := make(map[string]entities.Ballot, len(seed))
	for _, ballot := range seed {
		ballots[strings.TrimSpace(ballot.BallotID)] = ballot.Clone()
	}
	return &Store{
		ballots:     ballots,
		idempotency: make(map[string]ports.IdempotencyRecord),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
	}
}

func (s *Store) CreateBallot(_ context.Context, ballot entities.Ballot, events []ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballotID := strings.TrimSpace(ballot.BallotID)
	if _, exists := s.ballots[ballotID]; exists {
		return domainerrors.ErrConflict
	}
	rows, err := s.prepareOutboxLocked(events)
	if err != nil {
		return err
	}
	s.ballots[ballotID] = ballot.Clone()
	s.commitOutboxLocked(rows)
	return nil
}

func (s *Store) GetBallot(_ context.Context, ballotID string) (entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[strings.TrimSpace(ballotID)]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	return ballot.Clone(), nil
}

func (s *Store) ListBallots(_ context.Context) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Ballot, 0, len(s.ballots))
	for _, ballot := range s.ballots {
		items = append(items, ballot.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// UpdateBallot runs mutate on a copy while holding the store lock and commits
// the copy only when mutate succeeds.
func (s *Store) UpdateBallot(
	_ context.Context,
	ballotID string,
	mutate ports.BallotMutation,
) (entities.Ballot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ballotID = strings.TrimSpace(ballotID)
	current, ok := s.ballots[ballotID]
	if !ok {
		return entities.Ballot{}, domainerrors.ErrBallotNotFound
	}
	working := current.Clone()
	events, err := mutate(&working)
	if err != nil {
		return entities.Ballot{}, err
	}
	rows, err := s.prepareOutboxLocked(events)
	if err != nil {
		return entities.Ballot{}, err
	}
	working.Version = current.Version + 1
	s.ballots[ballotID] = working
	s.commitOutboxLocked(rows)
	return working.Clone(), nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key = strings.TrimSpace(key)
	record, exists := s.idempotency[key]
	if !exists {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.After(now.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(record.Key)
	if existing, exists := s.idempotency[key]; exists {
		if existing.Operation != record.Operation || existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:             key,
		Operation:       strings.TrimSpace(record.Operation),
		RequestHash:     strings.TrimSpace(record.RequestHash),
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	return nil
}

// ListPendingOutbox returns unpublished rows in commit order.
func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].sequence < rows[j].sequence
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID = strings.TrimSpace(outboxID)
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok {
		if existing.expiresAt.IsZero() || time.Now().UTC().Before(existing.expiresAt) {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
		delete(s.eventDedup, key)
	}
	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// prepareOutboxLocked encodes events without touching the store so a failed
// encode leaves nothing behind.
func (s *Store) prepareOutboxLocked(events []ports.EventEnvelope) ([]outboxRecord, error) {
	rows := make([]outboxRecord, 0, len(events))
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if existing, ok := s.outbox[outboxID]; ok && !bytes.Equal(existing.message.Payload, payload) {
			return nil, domainerrors.ErrConflict
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
		})
	}
	return rows, nil
}

func (s *Store) commitOutboxLocked(rows []outboxRecord) {
	for _, row := range rows {
		if _, exists := s.outbox[row.message.OutboxID]; exists {
			continue
		}
		s.sequence++
		row.sequence = s.sequence
		s.outbox[row.message.OutboxID] = row
	}
}
