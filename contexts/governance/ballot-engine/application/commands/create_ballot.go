package commands

import (
	"context"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

// CreateBallotCommand opens a ballot; Caller becomes the chairman.
type CreateBallotCommand struct {
	Caller         string
	IdempotencyKey string
	Proposals      []string
}

type CreateBallotResult struct {
	BallotID  string   `json:"ballot_id"`
	Chairman  string   `json:"chairman"`
	Proposals []string `json:"proposals"`
	Version   int64    `json:"version"`
	Replayed  bool     `json:"replayed"`
}

func (uc BallotUseCase) CreateBallot(ctx context.Context, cmd CreateBallotCommand) (result CreateBallotResult, err error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("ballot create started",
		"event", "ballot_create_started",
		"module", application.ModuleName,
		"layer", "application",
		"caller", cmd.Caller,
		"proposal_count", len(cmd.Proposals),
	)
	defer func() {
		uc.logOutcome(operationCreateBallot, result.BallotID, cmd.Caller, err)
		uc.observe(operationCreateBallot, err)
	}()

	chairman, err := uc.normalizeAddress(cmd.Caller)
	if err != nil {
		return CreateBallotResult{}, err
	}
	requestHash, err := hashRequest(operationCreateBallot, struct {
		Chairman  string   `json:"chairman"`
		Proposals []string `json:"proposals"`
	}{
		Chairman:  chairman,
		Proposals: cmd.Proposals,
	})
	if err != nil {
		return CreateBallotResult{}, err
	}
	var replay CreateBallotResult
	if found, err := uc.replay(ctx, cmd.IdempotencyKey, operationCreateBallot, requestHash, &replay); err != nil {
		return CreateBallotResult{}, err
	} else if found {
		replay.Replayed = true
		return replay, nil
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateBallotResult{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CreateBallotResult{}, err
	}
	now := uc.now()
	ballot, err := entities.NewBallot(ballotID, chairman, cmd.Proposals, now)
	if err != nil {
		return CreateBallotResult{}, err
	}
	event, err := newBallotEnvelope(eventID, contractsv1.EventBallotCreated, ballotID, now, map[string]any{
		"ballot_id": ballotID,
		"chairman":  chairman,
		"proposals": cmd.Proposals,
	})
	if err != nil {
		return CreateBallotResult{}, err
	}
	if err := uc.Ballots.CreateBallot(ctx, ballot, []ports.EventEnvelope{event}); err != nil {
		return CreateBallotResult{}, err
	}

	result = CreateBallotResult{
		BallotID:  ballotID,
		Chairman:  chairman,
		Proposals: append([]string(nil), cmd.Proposals...),
		Version:   ballot.Version,
	}
	uc.remember(ctx, cmd.IdempotencyKey, operationCreateBallot, requestHash, result)
	uc.setLeader(ballotID, 0)

	logger.Info("ballot created",
		"event", "ballot_created",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"chairman", chairman,
		"proposal_count", len(cmd.Proposals),
	)
	return result, nil
}
