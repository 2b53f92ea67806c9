package commands

import (
	"context"
	"strings"
	"time"

	application "ballotbox/contexts/governance/ballot-engine/application"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	"ballotbox/contexts/governance/ballot-engine/ports"
	contractsv1 "ballotbox/contracts/gen/events/v1"
)

type CastVoteCommand struct {
	BallotID       string
	Caller         string
	IdempotencyKey string
	Proposal       int
}

type CastVoteResult struct {
	BallotID        string `json:"ballot_id"`
	Voter           string `json:"voter"`
	Proposal        int    `json:"proposal"`
	Weight          uint64 `json:"weight"`
	WinningProposal int    `json:"winning_proposal"`
	Version         int64  `json:"version"`
	Replayed        bool   `json:"replayed"`
}

// CastVote spends the caller's full weight on one proposal.
func (uc BallotUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (result CastVoteResult, err error) {
	logger := application.ResolveLogger(uc.Logger)
	ballotID := strings.TrimSpace(cmd.BallotID)
	logger.Info("ballot vote started",
		"event", "ballot_vote_started",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"caller", cmd.Caller,
		"proposal", cmd.Proposal,
	)
	defer func() {
		uc.logOutcome(operationVote, ballotID, cmd.Caller, err)
		uc.observe(operationVote, err)
	}()

	caller, err := uc.normalizeAddress(cmd.Caller)
	if err != nil {
		return CastVoteResult{}, err
	}
	requestHash, err := hashRequest(operationVote, struct {
		BallotID string `json:"ballot_id"`
		Caller   string `json:"caller"`
		Proposal int    `json:"proposal"`
	}{ballotID, caller, cmd.Proposal})
	if err != nil {
		return CastVoteResult{}, err
	}
	var replay CastVoteResult
	if found, err := uc.replay(ctx, cmd.IdempotencyKey, operationVote, requestHash, &replay); err != nil {
		return CastVoteResult{}, err
	} else if found {
		replay.Replayed = true
		return replay, nil
	}

	eventIDs, err := uc.newEventIDs(ctx, 2)
	if err != nil {
		return CastVoteResult{}, err
	}
	now := uc.now()
	var outcome entities.VoteOutcome
	updated, err := uc.Ballots.UpdateBallot(ctx, ballotID, func(ballot *entities.Ballot) ([]ports.EventEnvelope, error) {
		before, err := ballot.WinningProposal()
		if err != nil {
			return nil, err
		}
		outcome, err = ballot.Vote(caller, cmd.Proposal)
		if err != nil {
			return nil, err
		}
		ballot.UpdatedAt = now
		event, err := newBallotEnvelope(eventIDs[0], contractsv1.EventBallotVoteCast, ballotID, now, map[string]any{
			"ballot_id":  ballotID,
			"voter":      outcome.Voter,
			"proposal":   outcome.Proposal,
			"weight":     outcome.Weight,
			"vote_count": ballot.Proposals[outcome.Proposal].VoteCount,
		})
		if err != nil {
			return nil, err
		}
		return appendLeaderChanged([]ports.EventEnvelope{event}, eventIDs[1], *ballot, before, now)
	})
	if err != nil {
		return CastVoteResult{}, err
	}

	winner, err := updated.WinningProposal()
	if err != nil {
		return CastVoteResult{}, err
	}
	result = CastVoteResult{
		BallotID:        ballotID,
		Voter:           outcome.Voter,
		Proposal:        outcome.Proposal,
		Weight:          outcome.Weight,
		WinningProposal: winner,
		Version:         updated.Version,
	}
	uc.remember(ctx, cmd.IdempotencyKey, operationVote, requestHash, result)
	uc.setLeader(ballotID, winner)

	logger.Info("ballot vote cast",
		"event", "ballot_vote_cast",
		"module", application.ModuleName,
		"layer", "application",
		"ballot_id", ballotID,
		"voter", outcome.Voter,
		"proposal", outcome.Proposal,
		"weight", outcome.Weight,
		"winning_proposal", winner,
	)
	return result, nil
}

func (uc BallotUseCase) newEventIDs(ctx context.Context, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// appendLeaderChanged adds a leader_changed event when the mutation moved the
// winning proposal away from before.
func appendLeaderChanged(
	events []ports.EventEnvelope,
	eventID string,
	ballot entities.Ballot,
	before int,
	now time.Time,
) ([]ports.EventEnvelope, error) {
	after, err := ballot.WinningProposal()
	if err != nil {
		return nil, err
	}
	if after == before {
		return events, nil
	}
	event, err := newLeaderChangedEnvelope(eventID, ballot.BallotID, before, after, ballot.Proposals[after].VoteCount, now)
	if err != nil {
		return nil, err
	}
	return append(events, event), nil
}
