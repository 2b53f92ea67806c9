package queries

import (
	"context"
	"sort"
	"strings"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	"ballotbox/contexts/governance/ballot-engine/ports"
)

type ResultsUseCase struct {
	Ballots   ports.BallotRepository
	Addresses ports.AddressNormalizer
}

type Winner struct {
	Index     int
	Name      string
	VoteCount uint64
}

type Tally struct {
	BallotID      string
	Proposals     []entities.Proposal
	TotalVotes    uint64
	PendingWeight uint64
	VoterCount    int
	Winner        Winner
	Version       int64
}

// VoterView is a registry entry together with the voter currently holding
// its weight.
type VoterView struct {
	Voter          entities.Voter
	Representative string
}

func (uc ResultsUseCase) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	return uc.Ballots.GetBallot(ctx, strings.TrimSpace(ballotID))
}

// ListBallots returns ballots newest first.
func (uc ResultsUseCase) ListBallots(ctx context.Context) ([]entities.Ballot, error) {
	ballots, err := uc.Ballots.ListBallots(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ballots, func(i, j int) bool {
		if ballots[i].CreatedAt.Equal(ballots[j].CreatedAt) {
			return ballots[i].BallotID < ballots[j].BallotID
		}
		return ballots[i].CreatedAt.After(ballots[j].CreatedAt)
	})
	return ballots, nil
}

func (uc ResultsUseCase) WinningProposal(ctx context.Context, ballotID string) (Winner, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return Winner{}, err
	}
	return winnerOf(ballot)
}

func (uc ResultsUseCase) Tally(ctx context.Context, ballotID string) (Tally, error) {
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return Tally{}, err
	}
	winner, err := winnerOf(ballot)
	if err != nil {
		return Tally{}, err
	}
	return Tally{
		BallotID:      ballot.BallotID,
		Proposals:     append([]entities.Proposal(nil), ballot.Proposals...),
		TotalVotes:    ballot.TotalVotes(),
		PendingWeight: ballot.PendingWeight(),
		VoterCount:    len(ballot.Voters),
		Winner:        winner,
		Version:       ballot.Version,
	}, nil
}

func (uc ResultsUseCase) GetVoter(ctx context.Context, ballotID string, address string) (VoterView, error) {
	normalized, err := uc.normalizeAddress(address)
	if err != nil {
		return VoterView{}, err
	}
	ballot, err := uc.GetBallot(ctx, ballotID)
	if err != nil {
		return VoterView{}, err
	}
	voter, ok := ballot.Voter(normalized)
	if !ok {
		return VoterView{}, domainerrors.ErrVoterNotFound
	}
	representative, err := ballot.Representative(normalized)
	if err != nil {
		return VoterView{}, err
	}
	return VoterView{
		Voter:          voter,
		Representative: representative,
	}, nil
}

func (uc ResultsUseCase) normalizeAddress(raw string) (string, error) {
	if uc.Addresses != nil {
		return uc.Addresses.Normalize(raw)
	}
	address := strings.TrimSpace(raw)
	if address == "" {
		return "", domainerrors.ErrInvalidAddress
	}
	return address, nil
}

func winnerOf(ballot entities.Ballot) (Winner, error) {
	index, err := ballot.WinningProposal()
	if err != nil {
		return Winner{}, err
	}
	return Winner{
		Index:     index,
		Name:      ballot.Proposals[index].Name,
		VoteCount: ballot.Proposals[index].VoteCount,
	}, nil
}
