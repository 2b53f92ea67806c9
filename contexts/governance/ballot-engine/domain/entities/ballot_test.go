package entities

import (
	"errors"
	"testing"
	"time"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
)

var testProposals = []string{"prop1", "prop2", "prop3", "prop4"}

func newTestBallot(t *testing.T, voters ...string) Ballot {
	t.Helper()
	ballot, err := NewBallot("ballot-1", "chairman", testProposals, time.Unix(1700000000, 0).UTC())
	if err != nil {
		t.Fatalf("new ballot failed: %v", err)
	}
	for _, voter := range voters {
		if err := ballot.AddVoter("chairman", voter); err != nil {
			t.Fatalf("add voter %s failed: %v", voter, err)
		}
	}
	return ballot
}

func mustVote(t *testing.T, ballot *Ballot, voter string, proposal int) {
	t.Helper()
	if _, err := ballot.Vote(voter, proposal); err != nil {
		t.Fatalf("vote by %s for %d failed: %v", voter, proposal, err)
	}
}

func mustDelegate(t *testing.T, ballot *Ballot, from string, to string) DelegationOutcome {
	t.Helper()
	outcome, err := ballot.Delegate(from, to)
	if err != nil {
		t.Fatalf("delegate %s -> %s failed: %v", from, to, err)
	}
	return outcome
}

func assertWinner(t *testing.T, ballot Ballot, expected int) {
	t.Helper()
	winner, err := ballot.WinningProposal()
	if err != nil {
		t.Fatalf("winning proposal failed: %v", err)
	}
	if winner != expected {
		t.Fatalf("expected winning proposal %d, got %d (tally %v)", expected, winner, ballot.Tally())
	}
}

func assertConserved(t *testing.T, ballot Ballot) {
	t.Helper()
	if got := ballot.TotalVotes() + ballot.PendingWeight(); got != uint64(len(ballot.Voters)) {
		t.Fatalf("weight not conserved: votes=%d pending=%d voters=%d",
			ballot.TotalVotes(), ballot.PendingWeight(), len(ballot.Voters))
	}
}

func TestNewBallotRegistersChairman(t *testing.T) {
	ballot := newTestBallot(t)

	chairman, ok := ballot.Voter("chairman")
	if !ok {
		t.Fatalf("expected chairman to be registered")
	}
	if chairman.Weight != 1 || chairman.Voted {
		t.Fatalf("expected chairman weight 1 and not voted, got %+v", chairman)
	}
	if len(ballot.Proposals) != 4 {
		t.Fatalf("expected 4 proposals, got %d", len(ballot.Proposals))
	}
}

func TestNewBallotRejectsEmptyProposalList(t *testing.T) {
	_, err := NewBallot("ballot-1", "chairman", nil, time.Now())
	if !errors.Is(err, domainerrors.ErrEmptyProposalList) {
		t.Fatalf("expected empty proposal list error, got %v", err)
	}
}

func TestNewBallotAllowsDuplicateNames(t *testing.T) {
	ballot, err := NewBallot("ballot-1", "chairman", []string{"same", "same"}, time.Now())
	if err != nil {
		t.Fatalf("new ballot failed: %v", err)
	}
	mustVote(t, &ballot, "chairman", 1)
	assertWinner(t, ballot, 1)
}

func TestZeroValueBallotHasNoWinner(t *testing.T) {
	var ballot Ballot
	if _, err := ballot.WinningProposal(); !errors.Is(err, domainerrors.ErrEmptyProposalList) {
		t.Fatalf("expected empty proposal list error, got %v", err)
	}
}

func TestDefaultsToFirstProposalWinning(t *testing.T) {
	ballot := newTestBallot(t, "voter1")
	assertWinner(t, ballot, 0)

	name, err := ballot.WinnerName()
	if err != nil {
		t.Fatalf("winner name failed: %v", err)
	}
	if name != "prop1" {
		t.Fatalf("expected prop1, got %s", name)
	}
}

func TestOnlyChairmanAddsVoters(t *testing.T) {
	ballot := newTestBallot(t, "voter1")

	if err := ballot.AddVoter("voter1", "voter2"); !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if err := ballot.AddVoter("stranger", "stranger"); !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected not authorized for unregistered caller, got %v", err)
	}
	if err := ballot.AddVoter("chairman", "voter2"); err != nil {
		t.Fatalf("expected chairman to add voter, got %v", err)
	}
}

func TestVotersCannotBeAddedTwice(t *testing.T) {
	ballot := newTestBallot(t, "voter1")

	if err := ballot.AddVoter("chairman", "voter1"); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
	if err := ballot.AddVoter("chairman", "chairman"); !errors.Is(err, domainerrors.ErrAlreadyRegistered) {
		t.Fatalf("expected chairman to be registered already, got %v", err)
	}
}

func TestSingleVoteDecidesWinner(t *testing.T) {
	ballot := newTestBallot(t, "voter1")
	mustVote(t, &ballot, "voter1", 1)
	assertWinner(t, ballot, 1)
}

func TestVoterCannotVoteTwice(t *testing.T) {
	ballot := newTestBallot(t, "voter1")
	mustVote(t, &ballot, "voter1", 1)

	if _, err := ballot.Vote("voter1", 1); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if _, err := ballot.Delegate("voter1", "chairman"); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected delegation after vote to fail, got %v", err)
	}
	if ballot.Proposals[1].VoteCount != 1 {
		t.Fatalf("expected count 1, got %d", ballot.Proposals[1].VoteCount)
	}
}

func TestVoteRejectsUnregisteredAndOutOfRange(t *testing.T) {
	ballot := newTestBallot(t, "voter1")

	if _, err := ballot.Vote("stranger", 0); !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if _, err := ballot.Vote("voter1", 4); !errors.Is(err, domainerrors.ErrInvalidProposal) {
		t.Fatalf("expected invalid proposal, got %v", err)
	}
	if _, err := ballot.Vote("voter1", -1); !errors.Is(err, domainerrors.ErrInvalidProposal) {
		t.Fatalf("expected invalid proposal for negative index, got %v", err)
	}
	voter, _ := ballot.Voter("voter1")
	if voter.Voted {
		t.Fatalf("expected failed vote to leave voter untouched")
	}
}

func TestTiesAreWonByEarlierProposal(t *testing.T) {
	ballot := newTestBallot(t, "voter1", "voter2")

	mustVote(t, &ballot, "voter1", 2)
	assertWinner(t, ballot, 2)

	mustVote(t, &ballot, "voter2", 1)
	assertWinner(t, ballot, 1)
}

func TestMostVotesWins(t *testing.T) {
	ballot := newTestBallot(t, "v1", "v2", "v3", "v4", "v5")

	mustVote(t, &ballot, "v1", 1)
	mustVote(t, &ballot, "v2", 1)
	mustVote(t, &ballot, "v3", 2)
	mustVote(t, &ballot, "v4", 2)
	mustVote(t, &ballot, "v5", 2)

	assertWinner(t, ballot, 2)
	assertConserved(t, ballot)
}

func TestDelegateToNonVoterFails(t *testing.T) {
	ballot := newTestBallot(t, "voter1")

	_, err := ballot.Delegate("voter1", "nonvoter")
	if !errors.Is(err, domainerrors.ErrDelegateNotRegistered) {
		t.Fatalf("expected delegate not registered, got %v", err)
	}
	if !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected delegate error to match not registered")
	}
	voter, _ := ballot.Voter("voter1")
	if voter.Voted || voter.Delegate != "" {
		t.Fatalf("expected failed delegation to leave voter untouched, got %+v", voter)
	}
}

func TestDelegateRejectsUnregisteredCallerAndSelf(t *testing.T) {
	ballot := newTestBallot(t, "voter1")

	if _, err := ballot.Delegate("stranger", "voter1"); !errors.Is(err, domainerrors.ErrNotRegistered) {
		t.Fatalf("expected not registered, got %v", err)
	}
	if _, err := ballot.Delegate("voter1", "voter1"); !errors.Is(err, domainerrors.ErrSelfDelegation) {
		t.Fatalf("expected self delegation, got %v", err)
	}
}

func TestVoterCannotDelegateTwice(t *testing.T) {
	ballot := newTestBallot(t, "voter1", "voter2")
	mustDelegate(t, &ballot, "voter1", "voter2")

	if _, err := ballot.Delegate("voter1", "voter2"); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if _, err := ballot.Vote("voter1", 0); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected vote after delegation to fail, got %v", err)
	}
}

func TestCannotDelegateBackToDelegator(t *testing.T) {
	ballot := newTestBallot(t, "voter1", "voter2")
	mustDelegate(t, &ballot, "voter1", "voter2")

	if _, err := ballot.Delegate("voter2", "voter1"); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected delegation cycle, got %v", err)
	}
}

func TestLongerCycleIsRejectedAtClosingStep(t *testing.T) {
	ballot := newTestBallot(t, "a", "b", "c")
	mustDelegate(t, &ballot, "a", "b")
	mustDelegate(t, &ballot, "b", "c")

	before := ballot.Clone()
	if _, err := ballot.Delegate("c", "a"); !errors.Is(err, domainerrors.ErrDelegationCycle) {
		t.Fatalf("expected delegation cycle, got %v", err)
	}
	if ballot.Voters["c"].Weight != before.Voters["c"].Weight || ballot.Voters["c"].Voted {
		t.Fatalf("expected failed delegation to leave state untouched")
	}
}

func TestDelegationBeforeVotingCountsTwice(t *testing.T) {
	ballot := newTestBallot(t, "v1", "v2", "v3", "v4", "v5")

	mustVote(t, &ballot, "v3", 3)
	outcome := mustDelegate(t, &ballot, "v1", "v2")
	if outcome.Applied {
		t.Fatalf("expected deferred weight for unvoted delegate")
	}
	if ballot.Voters["v2"].Weight != 2 {
		t.Fatalf("expected v2 weight 2, got %d", ballot.Voters["v2"].Weight)
	}
	mustVote(t, &ballot, "v2", 2)
	assertWinner(t, ballot, 2)

	mustVote(t, &ballot, "v4", 3)
	mustVote(t, &ballot, "v5", 3)
	assertWinner(t, ballot, 3)
	assertConserved(t, ballot)
}

func TestDelegationAfterVotingCountsTwice(t *testing.T) {
	ballot := newTestBallot(t, "v1", "v2", "v3", "v4", "v5")

	mustVote(t, &ballot, "v3", 3)
	mustVote(t, &ballot, "v2", 2)
	outcome := mustDelegate(t, &ballot, "v1", "v2")
	if !outcome.Applied || outcome.Proposal != 2 {
		t.Fatalf("expected immediate credit to proposal 2, got %+v", outcome)
	}
	if delegator, _ := ballot.Voter("v1"); !delegator.HasVote() || *delegator.Vote != 2 {
		t.Fatalf("expected delegator to carry the resolved vote, got %+v", delegator)
	}
	assertWinner(t, ballot, 2)

	mustVote(t, &ballot, "v4", 3)
	mustVote(t, &ballot, "v5", 3)
	assertWinner(t, ballot, 3)
	assertConserved(t, ballot)
}

func TestPendingDelegationLeavesVoteUnset(t *testing.T) {
	ballot := newTestBallot(t, "v1", "v2")

	outcome := mustDelegate(t, &ballot, "v1", "v2")
	if outcome.Applied {
		t.Fatalf("expected weight to stay pending, got %+v", outcome)
	}
	delegator, _ := ballot.Voter("v1")
	if !delegator.Voted || delegator.HasVote() || delegator.Delegate != "v2" {
		t.Fatalf("unexpected delegator %+v", delegator)
	}
}

func TestDelegationOrderDoesNotChangeTally(t *testing.T) {
	before := newTestBallot(t, "v1", "v2", "v3")
	mustDelegate(t, &before, "v1", "v2")
	mustVote(t, &before, "v2", 2)
	mustVote(t, &before, "v3", 0)

	after := newTestBallot(t, "v1", "v2", "v3")
	mustVote(t, &after, "v2", 2)
	mustVote(t, &after, "v3", 0)
	mustDelegate(t, &after, "v1", "v2")

	left, right := before.Tally(), after.Tally()
	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("expected identical tallies, got %v and %v", left, right)
		}
	}
}

func TestMultiHopDelegationAccumulatesAtChainEnd(t *testing.T) {
	ballot := newTestBallot(t, "a", "b", "c")
	mustDelegate(t, &ballot, "a", "b")
	mustDelegate(t, &ballot, "b", "c")

	if ballot.Voters["c"].Weight != 3 {
		t.Fatalf("expected c weight 3, got %d", ballot.Voters["c"].Weight)
	}
	representative, err := ballot.Representative("a")
	if err != nil {
		t.Fatalf("representative failed: %v", err)
	}
	if representative != "c" {
		t.Fatalf("expected a to be represented by c, got %s", representative)
	}

	mustVote(t, &ballot, "c", 1)
	if ballot.Proposals[1].VoteCount != 3 {
		t.Fatalf("expected proposal 1 count 3, got %d", ballot.Proposals[1].VoteCount)
	}
	assertConserved(t, ballot)
}

func TestDelegationThroughChainResolvesToEnd(t *testing.T) {
	ballot := newTestBallot(t, "a", "b", "c")
	mustDelegate(t, &ballot, "b", "c")

	outcome := mustDelegate(t, &ballot, "a", "b")
	if outcome.Delegate != "c" || outcome.Requested != "b" {
		t.Fatalf("expected resolved delegate c, got %+v", outcome)
	}
	if ballot.Voters["a"].Delegate != "c" {
		t.Fatalf("expected stored delegate c, got %s", ballot.Voters["a"].Delegate)
	}
}

func TestRepresentativeUnknownVoter(t *testing.T) {
	ballot := newTestBallot(t)
	if _, err := ballot.Representative("nobody"); !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected voter not found, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ballot := newTestBallot(t, "voter1")
	mustVote(t, &ballot, "voter1", 2)

	clone := ballot.Clone()
	mustVote(t, &clone, "chairman", 2)
	*clone.Voters["voter1"].Vote = 0

	if ballot.Proposals[2].VoteCount != 1 {
		t.Fatalf("expected original count 1, got %d", ballot.Proposals[2].VoteCount)
	}
	if *ballot.Voters["voter1"].Vote != 2 {
		t.Fatalf("expected original vote index 2, got %d", *ballot.Voters["voter1"].Vote)
	}
	if ballot.Voters["chairman"].Voted {
		t.Fatalf("expected original chairman not voted")
	}
}

func TestWeightConservedAcrossMixedActions(t *testing.T) {
	ballot := newTestBallot(t, "a", "b", "c", "d", "e", "f")

	mustDelegate(t, &ballot, "a", "b")
	assertConserved(t, ballot)
	mustVote(t, &ballot, "c", 3)
	assertConserved(t, ballot)
	mustDelegate(t, &ballot, "d", "c")
	assertConserved(t, ballot)
	mustDelegate(t, &ballot, "b", "e")
	assertConserved(t, ballot)
	mustVote(t, &ballot, "e", 0)
	assertConserved(t, ballot)

	if ballot.Proposals[0].VoteCount != 3 || ballot.Proposals[3].VoteCount != 2 {
		t.Fatalf("unexpected tally %v", ballot.Tally())
	}
	if ballot.PendingWeight() != 2 {
		t.Fatalf("expected chairman and f pending, got %d", ballot.PendingWeight())
	}
}
