package commands

import (
	"context"
	"strings"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

type DelegateCommand struct {
	BallotID       string
	Caller         string
	IdempotencyKey string
	To             string
}

// DelegateResult reports where the weight landed. Delegate is the resolved end
// of the chain, which differs from Requested for multi-hop delegation.
type DelegateResult struct {
	BallotID        string `json:"ballot_id"`
	Delegator       string `json:"delegator"`
	Requested       string `json:"requested"`
	Delegate        string `json:"delegate"`
	Weight          uint64 `json:"weight"`
	Applied         bool   `json:"applied"`
	Proposal        *int   `json:"proposal,omitempty"`
	WinningProposal int    `json:"winning_proposal"`
	Version         int64  `json:"version"`
	Replayed        bool   `json:"replayed"`
}

// Delegate hands the caller's weight to another registered voter. If the
// resolved delegate already voted the weight is credited to that proposal at
// once, otherwise it is added to the delegate's weight.
func (uc BallotUseCase) Delegate(ctx context.Context, cmd DelegateCommand) (result DelegateResult, err error) {
	logger := application.ResolveLogger(uc.Logger)
	ballotID := strings.TrimSpace(cmd.BallotID)
	logger.Info("ballot delegation started",
		"event", "ballot_delegate_started",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"caller", cmd.Caller,
		"to", cmd.To,
	)
	defer func() {
		uc.logOutcome(operationDelegate, ballotID, cmd.Caller, err)
		uc.observe(operationDelegate, err)
	}()

	caller, err := uc.normalizeAddress(cmd.Caller)
	if err != nil {
		return DelegateResult{}, err
	}
	to, err := uc.normalizeAddress(cmd.To)
	if err != nil {
		return DelegateResult{}, err
	}
	requestHash, err := hashRequest(operationDelegate, []string{ballotID, caller, to})
	if err != nil {
		return DelegateResult{}, err
	}
	var replay DelegateResult
	if found, err := uc.replay(ctx, cmd.IdempotencyKey, operationDelegate, requestHash, &replay); err != nil {
		return DelegateResult{}, err
	} else if found {
		replay.Replayed = true
		return replay, nil
	}

	eventIDs, err := uc.newEventIDs(ctx, 2)
	if err != nil {
		return DelegateResult{}, err
	}
	now := uc.now()
	var outcome entities.DelegationOutcome
	updated, err := uc.Ballots.UpdateBallot(ctx, ballotID, func(ballot *entities.Ballot) ([]ports.EventEnvelope, error) {
		before, err := ballot.WinningProposal()
		if err != nil {
			return nil, err
		}
		outcome, err = ballot.Delegate(caller, to)
		if err != nil {
			return nil, err
		}
		ballot.UpdatedAt = now
		data := map[string]any{
			"ballot_id": ballotID,
			"delegator": outcome.Delegator,
			"requested": outcome.Requested,
			"delegate":  outcome.Delegate,
			"weight":    outcome.Weight,
			"applied":   outcome.Applied,
		}
		if outcome.Applied {
			data["proposal"] = outcome.Proposal
		}
		event, err := newBallotEnvelope(eventIDs[0], contractsv1.EventBallotDelegated, ballotID, now, data)
		if err != nil {
			return nil, err
		}
		return appendLeaderChanged([]ports.EventEnvelope{event}, eventIDs[1], *ballot, before, now)
	})
	if err != nil {
		return DelegateResult{}, err
	}

	winner, err := updated.WinningProposal()
	if err != nil {
		return DelegateResult{}, err
	}
	result = DelegateResult{
		BallotID:        ballotID,
		Delegator:       outcome.Delegator,
		Requested:       outcome.Requested,
		Delegate:        outcome.Delegate,
		Weight:          outcome.Weight,
		Applied:         outcome.Applied,
		WinningProposal: winner,
		Version:         updated.Version,
	}
	if outcome.Applied {
		proposal := outcome.Proposal
		result.Proposal = &proposal
	}
	uc.remember(ctx, cmd.IdempotencyKey, operationDelegate, requestHash, result)
	uc.setLeader(ballotID, winner)

	logger.Info("ballot vote delegated",
		"event", "ballot_delegated",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"delegator", outcome.Delegator,
		"delegate", outcome.Delegate,
		"weight", outcome.Weight,
		"applied", outcome.Applied,
	)
	return result, nil
}
