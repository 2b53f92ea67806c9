package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateBallotRequest struct {
	Proposals []string `json:"proposals"`
}

type CreateBallotResponse struct {
	BallotID  string   `json:"ballot_id"`
	Chairman  string   `json:"chairman"`
	Proposals []string `json:"proposals"`
	Version   int64    `json:"version"`
	Replayed  bool     `json:"replayed"`
}

type AddVoterRequest struct {
	Voter string `json:"voter"`
}

type AddVoterResponse struct {
	BallotID string `json:"ballot_id"`
	Voter    string `json:"voter"`
	Weight   uint64 `json:"weight"`
	Version  int64  `json:"version"`
	Replayed bool   `json:"replayed"`
}

type VoteRequest struct {
	Proposal *int `json:"proposal"`
}

type VoteResponse struct {
	BallotID        string `json:"ballot_id"`
	Voter           string `json:"voter"`
	Proposal        int    `json:"proposal"`
	Weight          uint64 `json:"weight"`
	WinningProposal int    `json:"winning_proposal"`
	Version         int64  `json:"version"`
	Replayed        bool   `json:"replayed"`
}

type DelegateRequest struct {
	To string `json:"to"`
}

type DelegateResponse struct {
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

type ProposalItem struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type BallotResponse struct {
	BallotID   string         `json:"ballot_id"`
	Chairman   string         `json:"chairman"`
	Proposals  []ProposalItem `json:"proposals"`
	VoterCount int            `json:"voter_count"`
	Version    int64          `json:"version"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type BallotListResponse struct {
	Items []BallotResponse `json:"items"`
}

type VoterResponse struct {
	BallotID       string `json:"ballot_id"`
	Address        string `json:"address"`
	Weight         uint64 `json:"weight"`
	Voted          bool   `json:"voted"`
	Delegate       string `json:"delegate,omitempty"`
	Vote           *int   `json:"vote,omitempty"`
	Representative string `json:"representative"`
}

type WinnerResponse struct {
	BallotID  string `json:"ballot_id"`
	Index     int    `json:"winning_proposal"`
	Name      string `json:"winner_name"`
	VoteCount uint64 `json:"vote_count"`
}

type TallyResponse struct {
	BallotID      string         `json:"ballot_id"`
	Proposals     []ProposalItem `json:"proposals"`
	TotalVotes    uint64         `json:"total_votes"`
	PendingWeight uint64         `json:"pending_weight"`
	VoterCount    int            `json:"voter_count"`
	Winner        WinnerResponse `json:"winner"`
	Version       int64          `json:"version"`
}

type InterfaceMethod struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	Mutating  bool   `json:"mutating"`
}

type InterfaceResponse struct {
	ContractName string            `json:"contract_name"`
	Methods      []InterfaceMethod `json:"methods"`
}
