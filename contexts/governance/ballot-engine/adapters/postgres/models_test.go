package postgresadapter

import (
	"testing"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
)

func TestBallotRowsRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ballot, err := entities.NewBallot("ballot-1", "chair", []string{"a", "b", "a"}, now)
	if err != nil {
		t.Fatalf("new ballot: %v", err)
	}
	for _, voter := range []string{"alice", "bob"} {
		if err := ballot.AddVoter("chair", voter); err != nil {
			t.Fatalf("add voter: %v", err)
		}
	}
	if _, err := ballot.Delegate("alice", "bob"); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := ballot.Vote("bob", 2); err != nil {
		t.Fatalf("vote: %v", err)
	}

	row, proposals, voters := ballotRowsFromEntity(ballot)
	if len(proposals) != 3 || proposals[2].Position != 2 || proposals[2].VoteCount != 2 {
		t.Fatalf("unexpected proposal rows %+v", proposals)
	}

	// rows come back from postgres in arbitrary order
	reversed := []proposalModel{proposals[2], proposals[1], proposals[0]}
	restored := ballotFromRows(row, reversed, voters)
	if restored.Chairman != "chair" || len(restored.Voters) != 3 {
		t.Fatalf("unexpected restored ballot %+v", restored)
	}
	for i, proposal := range ballot.Proposals {
		if restored.Proposals[i] != proposal {
			t.Fatalf("proposal %d: expected %+v, got %+v", i, proposal, restored.Proposals[i])
		}
	}
	for address, voter := range ballot.Voters {
		if !sameVoter(voter, restored.Voters[address]) {
			t.Fatalf("voter %s: expected %+v, got %+v", address, voter, restored.Voters[address])
		}
	}
	if !restored.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %s, got %s", now, restored.CreatedAt)
	}
}

func TestSameVoterComparesVoteValues(t *testing.T) {
	one, two := 1, 2
	left := entities.Voter{Address: "a", Weight: 1, Voted: true, Vote: &one}
	copyOfOne := 1
	if !sameVoter(left, entities.Voter{Address: "a", Weight: 1, Voted: true, Vote: &copyOfOne}) {
		t.Fatal("expected voters with equal votes to match")
	}
	if sameVoter(left, entities.Voter{Address: "a", Weight: 1, Voted: true, Vote: &two}) {
		t.Fatal("expected different votes to differ")
	}
	if sameVoter(left, entities.Voter{Address: "a", Weight: 1, Voted: true, Delegate: "b"}) {
		t.Fatal("expected delegated voter to differ from direct voter")
	}
}
