package httpadapter

import (
	"context"
	"log/slog"

	"ballotbox/contexts/governance/ballot-engine/application/commands"
	"ballotbox/contexts/governance/ballot-engine/application/queries"
	"ballotbox/contexts/governance/ballot-engine/domain/entities"
	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	httptransport "ballotbox/contexts/governance/ballot-engine/transport/http"
)

// Handler adapts transport DTOs to ballot use cases. The caller identity is
// always passed explicitly by the server.
type Handler struct {
	Ballots commands.BallotUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

func (h Handler) CreateBallotHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	req httptransport.CreateBallotRequest,
) (httptransport.CreateBallotResponse, error) {
	result, err := h.Ballots.CreateBallot(ctx, commands.CreateBallotCommand{
		Caller:         caller,
		IdempotencyKey: idempotencyKey,
		Proposals:      req.Proposals,
	})
	if err != nil {
		return httptransport.CreateBallotResponse{}, err
	}
	return httptransport.CreateBallotResponse{
		BallotID:  result.BallotID,
		Chairman:  result.Chairman,
		Proposals: result.Proposals,
		Version:   result.Version,
		Replayed:  result.Replayed,
	}, nil
}

func (h Handler) AddVoterHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	ballotID string,
	req httptransport.AddVoterRequest,
) (httptransport.AddVoterResponse, error) {
	result, err := h.Ballots.AddVoter(ctx, commands.AddVoterCommand{
		BallotID:       ballotID,
		Caller:         caller,
		IdempotencyKey: idempotencyKey,
		Voter:          req.Voter,
	})
	if err != nil {
		return httptransport.AddVoterResponse{}, err
	}
	return httptransport.AddVoterResponse{
		BallotID: result.BallotID,
		Voter:    result.Voter,
		Weight:   result.Weight,
		Version:  result.Version,
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) VoteHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	ballotID string,
	req httptransport.VoteRequest,
) (httptransport.VoteResponse, error) {
	if req.Proposal == nil {
		return httptransport.VoteResponse{}, domainerrors.ErrInvalidBallotInput
	}
	result, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		BallotID:       ballotID,
		Caller:         caller,
		IdempotencyKey: idempotencyKey,
		Proposal:       *req.Proposal,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		BallotID:        result.BallotID,
		Voter:           result.Voter,
		Proposal:        result.Proposal,
		Weight:          result.Weight,
		WinningProposal: result.WinningProposal,
		Version:         result.Version,
		Replayed:        result.Replayed,
	}, nil
}

func (h Handler) DelegateHandler(
	ctx context.Context,
	caller string,
	idempotencyKey string,
	ballotID string,
	req httptransport.DelegateRequest,
) (httptransport.DelegateResponse, error) {
	result, err := h.Ballots.Delegate(ctx, commands.DelegateCommand{
		BallotID:       ballotID,
		Caller:         caller,
		IdempotencyKey: idempotencyKey,
		To:             req.To,
	})
	if err != nil {
		return httptransport.DelegateResponse{}, err
	}
	return httptransport.DelegateResponse{
		BallotID:        result.BallotID,
		Delegator:       result.Delegator,
		Requested:       result.Requested,
		Delegate:        result.Delegate,
		Weight:          result.Weight,
		Applied:         result.Applied,
		Proposal:        result.Proposal,
		WinningProposal: result.WinningProposal,
		Version:         result.Version,
		Replayed:        result.Replayed,
	}, nil
}

func (h Handler) GetBallotHandler(ctx context.Context, ballotID string) (httptransport.BallotResponse, error) {
	ballot, err := h.Results.GetBallot(ctx, ballotID)
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return mapBallot(ballot), nil
}

func (h Handler) ListBallotsHandler(ctx context.Context) (httptransport.BallotListResponse, error) {
	ballots, err := h.Results.ListBallots(ctx)
	if err != nil {
		return httptransport.BallotListResponse{}, err
	}
	items := make([]httptransport.BallotResponse, 0, len(ballots))
	for _, ballot := range ballots {
		items = append(items, mapBallot(ballot))
	}
	return httptransport.BallotListResponse{Items: items}, nil
}

func (h Handler) GetVoterHandler(ctx context.Context, ballotID string, address string) (httptransport.VoterResponse, error) {
	view, err := h.Results.GetVoter(ctx, ballotID, address)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	response := httptransport.VoterResponse{
		BallotID:       ballotID,
		Address:        view.Voter.Address,
		Weight:         view.Voter.Weight,
		Voted:          view.Voter.Voted,
		Delegate:       view.Voter.Delegate,
		Representative: view.Representative,
	}
	if view.Voter.HasVote() {
		vote := *view.Voter.Vote
		response.Vote = &vote
	}
	return response, nil
}

func (h Handler) WinnerHandler(ctx context.Context, ballotID string) (httptransport.WinnerResponse, error) {
	winner, err := h.Results.WinningProposal(ctx, ballotID)
	if err != nil {
		return httptransport.WinnerResponse{}, err
	}
	return httptransport.WinnerResponse{
		BallotID:  ballotID,
		Index:     winner.Index,
		Name:      winner.Name,
		VoteCount: winner.VoteCount,
	}, nil
}

func (h Handler) TallyHandler(ctx context.Context, ballotID string) (httptransport.TallyResponse, error) {
	tally, err := h.Results.Tally(ctx, ballotID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		BallotID:      tally.BallotID,
		Proposals:     mapProposals(tally.Proposals),
		TotalVotes:    tally.TotalVotes,
		PendingWeight: tally.PendingWeight,
		VoterCount:    tally.VoterCount,
		Winner: httptransport.WinnerResponse{
			BallotID:  tally.BallotID,
			Index:     tally.Winner.Index,
			Name:      tally.Winner.Name,
			VoteCount: tally.Winner.VoteCount,
		},
		Version: tally.Version,
	}, nil
}

func mapBallot(ballot entities.Ballot) httptransport.BallotResponse {
	return httptransport.BallotResponse{
		BallotID:   ballot.BallotID,
		Chairman:   ballot.Chairman,
		Proposals:  mapProposals(ballot.Proposals),
		VoterCount: len(ballot.Voters),
		Version:    ballot.Version,
		CreatedAt:  ballot.CreatedAt,
		UpdatedAt:  ballot.UpdatedAt,
	}
}

func mapProposals(proposals []entities.Proposal) []httptransport.ProposalItem {
	items := make([]httptransport.ProposalItem, 0, len(proposals))
	for i, proposal := range proposals {
		items = append(items, httptransport.ProposalItem{
			Index:     i,
			Name:      proposal.Name,
			VoteCount: proposal.VoteCount,
		})
	}
	return items
}
