package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	application "ballotbox/contexts/governance/ballot-engine/application"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

func idempotencyStorageKey(key string) string {
	return "ballot_idempotency:" + strings.TrimSpace(key)
}

func hashRequest(operation string, payload any) (string, error) {
	raw, err := json.Marshal(struct {
		Operation string `json:"operation"`
		Payload   any    `json:"payload"`
	}{
		Operation: operation,
		Payload:   payload,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// replay loads a stored result into out. found=false means the command must
// run; an empty key opts out of replay entirely.
func (uc BallotUseCase) replay(
	ctx context.Context,
	key string,
	operation string,
	requestHash string,
	out any,
) (bool, error) {
	if strings.TrimSpace(key) == "" || uc.Idempotency == nil {
		return false, nil
	}
	logger := application.ResolveLogger(uc.Logger)
	record, found, err := uc.Idempotency.Get(ctx, idempotencyStorageKey(key), uc.now())
	if err != nil {
		logger.Error("ballot idempotency lookup failed",
			"event", "ballot_idempotency_get_failed",
			"module", application.ModuleName,
			"layer", "application",
			"operation", operation,
			"error", err.Error(),
		)
		return false, err
	}
	if !found {
		return false, nil
	}
	if record.Operation != operation || record.RequestHash != requestHash {
		logger.Warn("ballot idempotency conflict",
			"event", "ballot_idempotency_conflict",
			"module", application.ModuleName,
			"layer", "application",
			"operation", operation,
		)
		return false, domainerrors.ErrIdempotencyConflict
	}
	if err := json.Unmarshal(record.ResponsePayload, out); err != nil {
		return false, err
	}
	return true, nil
}

// remember stores result under key. It runs after the mutation committed, so a
// failed write is logged and the committed result is still returned.
func (uc BallotUseCase) remember(
	ctx context.Context,
	key string,
	operation string,
	requestHash string,
	result any,
) {
	if strings.TrimSpace(key) == "" || uc.Idempotency == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)
	payload, err := json.Marshal(result)
	if err == nil {
		err = uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:             idempotencyStorageKey(key),
			Operation:       operation,
			RequestHash:     requestHash,
			ResponsePayload: payload,
			ExpiresAt:       uc.now().Add(uc.resolveIdempotencyTTL()),
		})
	}
	if err != nil {
		logger.Error("ballot idempotency record failed after commit",
			"event", "ballot_idempotency_put_failed",
			"module", application.ModuleName,
			"layer", "application",
			"operation", operation,
			"error", err.Error(),
		)
	}
}
