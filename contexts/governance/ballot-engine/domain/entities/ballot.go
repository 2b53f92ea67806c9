package entities

import (
	"strings"
	"time"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
)

// Proposal is addressed by its position in the ballot; names may repeat.
type Proposal struct {
	Name      string
	VoteCount uint64
}

// Voter is a registry entry. Delegate holds the resolved end of the chain at
// delegation time. Vote is set by a direct vote, or by a delegation whose
// weight was credited at once because the delegate had already voted.
type Voter struct {
	Address  string
	Weight   uint64
	Voted    bool
	Delegate string
	Vote     *int
}

func (v Voter) HasVote() bool {
	return v.Vote != nil
}

// Ballot is the aggregate root. It is not safe for concurrent use; callers
// serialize mutations through the repository.
type Ballot struct {
	BallotID  string
	Chairman  string
	Proposals []Proposal
	Voters    map[string]Voter
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VoteOutcome describes a committed direct vote.
type VoteOutcome struct {
	Voter    string
	Proposal int
	Weight   uint64
}

// DelegationOutcome describes a committed delegation. Applied reports whether
// the weight was credited to Proposal immediately because the delegate had
// already voted.
type DelegationOutcome struct {
	Delegator string
	Requested string
	Delegate  string
	Weight    uint64
	Applied   bool
	Proposal  int
}

func NewBallot(ballotID string, chairman string, proposalNames []string, now time.Time) (Ballot, error) {
	if strings.TrimSpace(ballotID) == "" || strings.TrimSpace(chairman) == "" {
		return Ballot{}, domainerrors.ErrInvalidBallotInput
	}
	if len(proposalNames) == 0 {
		return Ballot{}, domainerrors.ErrEmptyProposalList
	}

	proposals := make([]Proposal, 0, len(proposalNames))
	for _, name := range proposalNames {
		proposals = append(proposals, Proposal{Name: name})
	}
	return Ballot{
		BallotID:  ballotID,
		Chairman:  chairman,
		Proposals: proposals,
		Voters: map[string]Voter{
			chairman: {Address: chairman, Weight: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so a mutation can be attempted without touching
// the committed state.
func (b Ballot) Clone() Ballot {
	clone := b
	clone.Proposals = append([]Proposal(nil), b.Proposals...)
	clone.Voters = make(map[string]Voter, len(b.Voters))
	for address, voter := range b.Voters {
		if voter.Vote != nil {
			index := *voter.Vote
			voter.Vote = &index
		}
		clone.Voters[address] = voter
	}
	return clone
}

func (b *Ballot) AddVoter(caller string, newVoter string) error {
	if caller != b.Chairman {
		return domainerrors.ErrNotAuthorized
	}
	if _, exists := b.Voters[newVoter]; exists {
		return domainerrors.ErrAlreadyRegistered
	}
	if strings.TrimSpace(newVoter) == "" {
		return domainerrors.ErrInvalidAddress
	}
	if b.Voters == nil {
		b.Voters = make(map[string]Voter)
	}
	b.Voters[newVoter] = Voter{Address: newVoter, Weight: 1}
	return nil
}

func (b *Ballot) Vote(caller string, proposal int) (VoteOutcome, error) {
	voter, ok := b.Voters[caller]
	if !ok {
		return VoteOutcome{}, domainerrors.ErrNotRegistered
	}
	if voter.Voted {
		return VoteOutcome{}, domainerrors.ErrAlreadyVoted
	}
	if proposal < 0 || proposal >= len(b.Proposals) {
		return VoteOutcome{}, domainerrors.ErrInvalidProposal
	}

	index := proposal
	voter.Voted = true
	voter.Vote = &index
	b.Voters[caller] = voter
	b.Proposals[proposal].VoteCount += voter.Weight
	return VoteOutcome{
		Voter:    caller,
		Proposal: proposal,
		Weight:   voter.Weight,
	}, nil
}

func (b *Ballot) Delegate(caller string, to string) (DelegationOutcome, error) {
	sender, ok := b.Voters[caller]
	if !ok {
		return DelegationOutcome{}, domainerrors.ErrNotRegistered
	}
	if sender.Voted {
		return DelegationOutcome{}, domainerrors.ErrAlreadyVoted
	}
	if to == caller {
		return DelegationOutcome{}, domainerrors.ErrSelfDelegation
	}
	resolved, err := b.resolveFrom(to, caller)
	if err != nil {
		return DelegationOutcome{}, err
	}
	target, ok := b.Voters[resolved]
	if !ok {
		return DelegationOutcome{}, domainerrors.ErrDelegateNotRegistered
	}

	outcome := DelegationOutcome{
		Delegator: caller,
		Requested: to,
		Delegate:  resolved,
		Weight:    sender.Weight,
	}
	sender.Voted = true
	sender.Delegate = resolved

	if target.Voted && target.HasVote() {
		proposal := *target.Vote
		sender.Vote = &proposal
		b.Voters[caller] = sender
		b.Proposals[proposal].VoteCount += sender.Weight
		outcome.Applied = true
		outcome.Proposal = proposal
		return outcome, nil
	}
	b.Voters[caller] = sender
	target.Weight += sender.Weight
	b.Voters[resolved] = target
	return outcome, nil
}

// resolveFrom walks delegate references starting at start until it reaches a
// voter without a delegate. Reaching origin means the new edge would close a
// cycle. The walk is bounded by the registry size.
func (b Ballot) resolveFrom(start string, origin string) (string, error) {
	current := start
	for steps := 0; ; steps++ {
		if origin != "" && current == origin {
			return "", domainerrors.ErrDelegationCycle
		}
		voter, ok := b.Voters[current]
		if !ok || voter.Delegate == "" {
			return current, nil
		}
		if steps >= len(b.Voters) {
			return "", domainerrors.ErrDelegationCycle
		}
		current = voter.Delegate
	}
}

// Representative returns the voter currently carrying address's weight: the
// address itself when it has not delegated, otherwise the live end of its
// delegation chain.
func (b Ballot) Representative(address string) (string, error) {
	if _, ok := b.Voters[address]; !ok {
		return "", domainerrors.ErrVoterNotFound
	}
	return b.resolveFrom(address, "")
}

// WinningProposal returns the index with the strictly greatest count; ties
// go to the lowest index, so an untouched ballot reports 0.
func (b Ballot) WinningProposal() (int, error) {
	if len(b.Proposals) == 0 {
		return 0, domainerrors.ErrEmptyProposalList
	}
	winner := 0
	for i := 1; i < len(b.Proposals); i++ {
		if b.Proposals[i].VoteCount > b.Proposals[winner].VoteCount {
			winner = i
		}
	}
	return winner, nil
}

func (b Ballot) WinnerName() (string, error) {
	winner, err := b.WinningProposal()
	if err != nil {
		return "", err
	}
	return b.Proposals[winner].Name, nil
}

func (b Ballot) Voter(address string) (Voter, bool) {
	voter, ok := b.Voters[address]
	return voter, ok
}

func (b Ballot) Tally() []uint64 {
	counts := make([]uint64, 0, len(b.Proposals))
	for _, proposal := range b.Proposals {
		counts = append(counts, proposal.VoteCount)
	}
	return counts
}

func (b Ballot) TotalVotes() uint64 {
	var total uint64
	for _, proposal := range b.Proposals {
		total += proposal.VoteCount
	}
	return total
}

// PendingWeight is the weight held by voters that have neither voted nor
// delegated. TotalVotes()+PendingWeight() always equals the registry size.
func (b Ballot) PendingWeight() uint64 {
	var pending uint64
	for _, voter := range b.Voters {
		if !voter.Voted {
			pending += voter.Weight
		}
	}
	return pending
}
