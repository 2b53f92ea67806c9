package commands

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

// BallotUseCase orchestrates ballot commands: caller normalization,
// idempotent replay, serialized mutation through the repository and outbox
// event emission. Precondition failures come straight from the aggregate.
type BallotUseCase struct {
	Ballots        ports.BallotRepository
	Idempotency    ports.IdempotencyStore
	Addresses      ports.AddressNormalizer
	Metrics        ports.Metrics
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

const (
	operationCreateBallot = "create_ballot"
	operationAddVoter     = "add_voter"
	operationVote         = "vote"
	operationDelegate     = "delegate"
)

func (uc BallotUseCase) normalizeAddress(raw string) (string, error) {
	if uc.Addresses != nil {
		return uc.Addresses.Normalize(raw)
	}
	address := strings.TrimSpace(raw)
	if address == "" {
		return "", domainerrors.ErrInvalidAddress
	}
	return address, nil
}

// logOutcome records the terminal state of a command. Rejections are expected
// traffic and log at Warn; anything else is an infrastructure fault.
func (uc BallotUseCase) logOutcome(operation string, ballotID string, caller string, err error) {
	logger := application.ResolveLogger(uc.Logger)
	if err == nil {
		return
	}
	if IsRejection(err) {
		logger.Warn("ballot command rejected",
			"event", "ballot_"+operation+"_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"ballot_id", ballotID,
			"caller", caller,
			"reason", err.Error(),
		)
		return
	}
	logger.Error("ballot command failed",
		"event", "ballot_"+operation+"_failed",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"caller", caller,
		"error", err.Error(),
	)
}

func (uc BallotUseCase) observe(operation string, err error) {
	if uc.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		uc.Metrics.ObserveCommand(operation, "ok")
	case IsRejection(err):
		uc.Metrics.ObserveCommand(operation, "rejected")
	default:
		uc.Metrics.ObserveCommand(operation, "error")
	}
}

func (uc BallotUseCase) setLeader(ballotID string, proposal int) {
	if uc.Metrics != nil {
		uc.Metrics.SetLeader(ballotID, proposal)
	}
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc BallotUseCase) resolveIdempotencyTTL() time.Duration {
	if uc.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return uc.IdempotencyTTL
}

// IsRejection reports whether err is a deterministic precondition failure
// rather than an infrastructure fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		domainerrors.ErrNotAuthorized,
		domainerrors.ErrAlreadyRegistered,
		domainerrors.ErrNotRegistered,
		domainerrors.ErrAlreadyVoted,
		domainerrors.ErrSelfDelegation,
		domainerrors.ErrDelegationCycle,
		domainerrors.ErrInvalidProposal,
		domainerrors.ErrEmptyProposalList,
		domainerrors.ErrInvalidBallotInput,
		domainerrors.ErrInvalidAddress,
		domainerrors.ErrBallotNotFound,
		domainerrors.ErrIdempotencyConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
