package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or extends the ballot-engine tables.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&ballotModel{},
		&proposalModel{},
		&voterModel{},
		&idempotencyModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return r.logError("ballot_repo_automigrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateBallot(ctx context.Context, ballot entities.Ballot, events []ports.EventEnvelope) error {
	row, proposals, voters := ballotRowsFromEntity(ballot)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(proposals) > 0 {
			if err := tx.Create(&proposals).Error; err != nil {
				return err
			}
		}
		if len(voters) > 0 {
			if err := tx.Create(&voters).Error; err != nil {
				return err
			}
		}
		return appendOutbox(tx, events)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		if errors.Is(err, domainerrors.ErrConflict) {
			return err
		}
		return r.logError("ballot_repo_create_ballot_failed", err, "ballot_id", row.BallotID)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	ballot, err := loadBallot(r.db.WithContext(ctx), strings.TrimSpace(ballotID), false)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBallotNotFound) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("ballot_repo_get_ballot_failed", err, "ballot_id", strings.TrimSpace(ballotID))
	}
	return ballot, nil
}

func (r *Repository) ListBallots(ctx context.Context) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_ballots_failed", err)
	}
	if len(rows) == 0 {
		return []entities.Ballot{}, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.BallotID)
	}

	var proposals []proposalModel
	if err := r.db.WithContext(ctx).
		Where("ballot_id IN ?", ids).
		Order("ballot_id ASC, position ASC").
		Find(&proposals).Error; err != nil {
		return nil, r.logError("ballot_repo_list_proposals_failed", err)
	}
	var voters []voterModel
	if err := r.db.WithContext(ctx).
		Where("ballot_id IN ?", ids).
		Find(&voters).Error; err != nil {
		return nil, r.logError("ballot_repo_list_voters_failed", err)
	}

	proposalsByBallot := make(map[string][]proposalModel, len(rows))
	for _, proposal := range proposals {
		proposalsByBallot[proposal.BallotID] = append(proposalsByBallot[proposal.BallotID], proposal)
	}
	votersByBallot := make(map[string][]voterModel, len(rows))
	for _, voter := range voters {
		votersByBallot[voter.BallotID] = append(votersByBallot[voter.BallotID], voter)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, ballotFromRows(row, proposalsByBallot[row.BallotID], votersByBallot[row.BallotID]))
	}
	return items, nil
}

// UpdateBallot locks the ballot row for the duration of the transaction, so
// concurrent mutations of one ballot run one after another. Only rows that
// changed are written back.
func (r *Repository) UpdateBallot(
	ctx context.Context,
	ballotID string,
	mutate ports.BallotMutation,
) (entities.Ballot, error) {
	ballotID = strings.TrimSpace(ballotID)
	var committed entities.Ballot
	var mutateErr error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadBallot(tx, ballotID, true)
		if err != nil {
			return err
		}
		working := current.Clone()
		events, err := mutate(&working)
		if err != nil {
			mutateErr = err
			return err
		}
		working.Version = current.Version + 1

		if err := tx.Model(&ballotModel{}).
			Where("ballot_id = ?", ballotID).
			Updates(map[string]any{
				"version":    working.Version,
				"updated_at": working.UpdatedAt.UTC(),
			}).Error; err != nil {
			return err
		}
		for i, proposal := range working.Proposals {
			if i < len(current.Proposals) && current.Proposals[i].VoteCount == proposal.VoteCount {
				continue
			}
			if err := tx.Model(&proposalModel{}).
				Where("ballot_id = ? AND position = ?", ballotID, i).
				Update("vote_count", proposal.VoteCount).Error; err != nil {
				return err
			}
		}
		changed := make([]voterModel, 0, 2)
		for address, voter := range working.Voters {
			if previous, ok := current.Voters[address]; ok && sameVoter(previous, voter) {
				continue
			}
			changed = append(changed, voterModelFromEntity(ballotID, voter))
		}
		if len(changed) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ballot_id"}, {Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"weight", "voted", "delegate", "vote"}),
			}).Create(&changed).Error; err != nil {
				return err
			}
		}
		if err := appendOutbox(tx, events); err != nil {
			return err
		}
		committed = working
		return nil
	})
	if err != nil {
		if mutateErr != nil || errors.Is(err, domainerrors.ErrBallotNotFound) || errors.Is(err, domainerrors.ErrConflict) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("ballot_repo_update_ballot_failed", err, "ballot_id", ballotID)
	}
	return committed, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("ballot_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", row.Key).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("ballot_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", row.Key,
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:             row.Key,
		Operation:       row.Operation,
		RequestHash:     row.RequestHash,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		Operation:       strings.TrimSpace(record.Operation),
		RequestHash:     strings.TrimSpace(record.RequestHash),
		ResponsePayload: record.ResponsePayload,
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("ballot_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("ballot_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.Operation != row.Operation || existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("ballot_repo_reserve_event_failed", create.Error, "event_id", row.EventID)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("ballot_repo_reserve_event_load_existing_failed", err, "event_id", row.EventID)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func loadBallot(tx *gorm.DB, ballotID string, forUpdate bool) (entities.Ballot, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row ballotModel
	if err := query.Where("ballot_id = ?", ballotID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrBallotNotFound
		}
		return entities.Ballot{}, err
	}
	var proposals []proposalModel
	if err := tx.Where("ballot_id = ?", ballotID).Order("position ASC").Find(&proposals).Error; err != nil {
		return entities.Ballot{}, err
	}
	var voters []voterModel
	if err := tx.Where("ballot_id = ?", ballotID).Find(&voters).Error; err != nil {
		return entities.Ballot{}, err
	}
	return ballotFromRows(row, proposals, voters), nil
}

// appendOutbox writes events inside the caller's transaction. Re-appending an
// identical event is a no-op; a different payload under the same id conflicts.
func appendOutbox(tx *gorm.DB, events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:     strings.TrimSpace(envelope.EventID),
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    envelope.OccurredAt.UTC(),
		}
		if row.OutboxID == "" {
			row.OutboxID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected > 0 {
			continue
		}
		var existing outboxModel
		if err := tx.Select("payload").Where("outbox_id = ?", row.OutboxID).First(&existing).Error; err != nil {
			return err
		}
		if !bytes.Equal(existing.Payload, row.Payload) {
			return domainerrors.ErrConflict
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
