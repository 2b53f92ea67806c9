package redisadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"

	"github.com/go-redis/redis"
	"github.com/vmihailenco/msgpack"
)

const keyPrefix = "ballotbox:"

type idempotencyEntry struct {
	Operation       string `msgpack:"op"`
	RequestHash     string `msgpack:"hash"`
	ResponsePayload []byte `msgpack:"payload"`
	ExpiresAt       int64  `msgpack:"exp"`
}

// IdempotencyStore keeps idempotency records in redis and lets redis expire
// them. A key is claimed with SETNX so concurrent writers agree on one record.
type IdempotencyStore struct {
	client redis.Cmdable
	logger *slog.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(opts.Addr),
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewIdempotencyStore(client redis.Cmdable, logger *slog.Logger) *IdempotencyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyStore{
		client: client,
		logger: logger,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	key = strings.TrimSpace(key)
	raw, err := s.clientFor(ctx).Get(keyPrefix + key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, s.logError("ballot_redis_idempotency_get_failed", err, key)
	}
	var entry idempotencyEntry
	if err := msgpack.Unmarshal(raw, &entry); err != nil {
		return ports.IdempotencyRecord{}, false, s.logError("ballot_redis_idempotency_decode_failed", err, key)
	}
	expiresAt := time.Unix(0, entry.ExpiresAt).UTC()
	if !expiresAt.After(now.UTC()) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:             key,
		Operation:       entry.Operation,
		RequestHash:     entry.RequestHash,
		ResponsePayload: entry.ResponsePayload,
		ExpiresAt:       expiresAt,
	}, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	key := strings.TrimSpace(record.Key)
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := msgpack.Marshal(idempotencyEntry{
		Operation:       strings.TrimSpace(record.Operation),
		RequestHash:     strings.TrimSpace(record.RequestHash),
		ResponsePayload: record.ResponsePayload,
		ExpiresAt:       record.ExpiresAt.UTC().UnixNano(),
	})
	if err != nil {
		return s.logError("ballot_redis_idempotency_encode_failed", err, key)
	}
	client := s.clientFor(ctx)
	stored, err := client.SetNX(keyPrefix+key, raw, ttl).Result()
	if err != nil {
		return s.logError("ballot_redis_idempotency_put_failed", err, key)
	}
	if stored {
		return nil
	}

	existing, found, err := s.Get(ctx, key, time.Now())
	if err != nil {
		return err
	}
	if found && (existing.Operation != record.Operation || existing.RequestHash != record.RequestHash) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (s *IdempotencyStore) clientFor(ctx context.Context) redis.Cmdable {
	if client, ok := s.client.(*redis.Client); ok {
		return client.WithContext(ctx)
	}
	return s.client
}

func (s *IdempotencyStore) logError(event string, err error, key string) error {
	s.logger.Error("ballot idempotency cache operation failed",
		"event", event,
		"module", "governance/ballot-engine",
		"layer", "adapter",
		"idempotency_key", key,
		"error", err.Error(),
	)
	return err
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)
