package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

type AddVoterCommand struct {
	BallotID       string
	Caller         string
	IdempotencyKey string
	Voter          string
}

type AddVoterResult struct {
	BallotID string `json:"ballot_id"`
	Voter    string `json:"voter"`
	Weight   uint64 `json:"weight"`
	Version  int64  `json:"version"`
	Replayed bool   `json:"replayed"`
}

// AddVoter registers a voter. Only the chairman may call it and an address is
// never registered twice.
func (uc BallotUseCase) AddVoter(ctx context.Context, cmd AddVoterCommand) (result AddVoterResult, err error) {
	logger := application.ResolveLogger(uc.Logger)
	ballotID := strings.TrimSpace(cmd.BallotID)
	logger.Info("ballot add voter started",
		"event", "ballot_add_voter_started",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"caller", cmd.Caller,
		"voter", cmd.Voter,
	)
	defer func() {
		uc.logOutcome(operationAddVoter, ballotID, cmd.Caller, err)
		uc.observe(operationAddVoter, err)
	}()

	caller, err := uc.normalizeAddress(cmd.Caller)
	if err != nil {
		return AddVoterResult{}, err
	}
	voter, err := uc.normalizeAddress(cmd.Voter)
	if err != nil {
		return AddVoterResult{}, err
	}
	requestHash, err := hashRequest(operationAddVoter, []string{ballotID, caller, voter})
	if err != nil {
		return AddVoterResult{}, err
	}
	var replay AddVoterResult
	if found, err := uc.replay(ctx, cmd.IdempotencyKey, operationAddVoter, requestHash, &replay); err != nil {
		return AddVoterResult{}, err
	} else if found {
		replay.Replayed = true
		return replay, nil
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return AddVoterResult{}, err
	}
	now := uc.now()
	updated, err := uc.Ballots.UpdateBallot(ctx, ballotID, func(ballot *entities.Ballot) ([]ports.EventEnvelope, error) {
		if err := ballot.AddVoter(caller, voter); err != nil {
			return nil, err
		}
		ballot.UpdatedAt = now
		event, err := newBallotEnvelope(eventID, contractsv1.EventBallotVoterRegistered, ballotID, now, map[string]any{
			"ballot_id": ballotID,
			"voter":     voter,
			"weight":    1,
		})
		if err != nil {
			return nil, err
		}
		return []ports.EventEnvelope{event}, nil
	})
	if err != nil {
		return AddVoterResult{}, err
	}

	registered, _ := updated.Voter(voter)
	result = AddVoterResult{
		BallotID: ballotID,
		Voter:    voter,
		Weight:   registered.Weight,
		Version:  updated.Version,
	}
	uc.remember(ctx, cmd.IdempotencyKey, operationAddVoter, requestHash, result)

	logger.Info("ballot voter registered",
		"event", "ballot_voter_registered",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"voter", voter,
		"voter_count", len(updated.Voters),
	)
	return result, nil
}
