package postgresadapter

import (
	"strings"
	"time"

	"ballotbox/contexts/governance/ballot-engine/domain/entities"
)

type ballotModel struct {
	BallotID  string    `gorm:"column:ballot_id;primaryKey"`
	Chairman  string    `gorm:"column:chairman;not null"`
	Version   int64     `gorm:"column:version;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

type proposalModel struct {
	BallotID  string `gorm:"column:ballot_id;primaryKey"`
	Position  int    `gorm:"column:position;primaryKey"`
	Name      string `gorm:"column:name"`
	VoteCount uint64 `gorm:"column:vote_count;not null;default:0"`
}

func (proposalModel) TableName() string {
	return "ballot_proposals"
}

type voterModel struct {
	BallotID string `gorm:"column:ballot_id;primaryKey"`
	Address  string `gorm:"column:address;primaryKey"`
	Weight   uint64 `gorm:"column:weight;not null"`
	Voted    bool   `gorm:"column:voted;not null"`
	Delegate string `gorm:"column:delegate"`
	Vote     *int   `gorm:"column:vote"`
}

func (voterModel) TableName() string {
	return "ballot_voters"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	Operation       string    `gorm:"column:operation"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "ballot_engine_idempotency"
}

type outboxModel struct {
	Sequence     int64      `gorm:"column:seq;autoIncrement;uniqueIndex;->"`
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ballot_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "ballot_event_dedup"
}

func ballotRowsFromEntity(ballot entities.Ballot) (ballotModel, []proposalModel, []voterModel) {
	row := ballotModel{
		BallotID:  strings.TrimSpace(ballot.BallotID),
		Chairman:  ballot.Chairman,
		Version:   ballot.Version,
		CreatedAt: ballot.CreatedAt.UTC(),
		UpdatedAt: ballot.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	proposals := make([]proposalModel, 0, len(ballot.Proposals))
	for i, proposal := range ballot.Proposals {
		proposals = append(proposals, proposalModel{
			BallotID:  row.BallotID,
			Position:  i,
			Name:      proposal.Name,
			VoteCount: proposal.VoteCount,
		})
	}
	voters := make([]voterModel, 0, len(ballot.Voters))
	for _, voter := range ballot.Voters {
		voters = append(voters, voterModelFromEntity(row.BallotID, voter))
	}
	return row, proposals, voters
}

func voterModelFromEntity(ballotID string, voter entities.Voter) voterModel {
	row := voterModel{
		BallotID: ballotID,
		Address:  voter.Address,
		Weight:   voter.Weight,
		Voted:    voter.Voted,
		Delegate: voter.Delegate,
	}
	if voter.Vote != nil {
		index := *voter.Vote
		row.Vote = &index
	}
	return row
}

func ballotFromRows(row ballotModel, proposals []proposalModel, voters []voterModel) entities.Ballot {
	ballot := entities.Ballot{
		BallotID:  row.BallotID,
		Chairman:  row.Chairman,
		Proposals: make([]entities.Proposal, len(proposals)),
		Voters:    make(map[string]entities.Voter, len(voters)),
		Version:   row.Version,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	for _, proposal := range proposals {
		if proposal.Position < 0 || proposal.Position >= len(ballot.Proposals) {
			continue
		}
		ballot.Proposals[proposal.Position] = entities.Proposal{
			Name:      proposal.Name,
			VoteCount: proposal.VoteCount,
		}
	}
	for _, voter := range voters {
		entry := entities.Voter{
			Address:  voter.Address,
			Weight:   voter.Weight,
			Voted:    voter.Voted,
			Delegate: voter.Delegate,
		}
		if voter.Vote != nil {
			index := *voter.Vote
			entry.Vote = &index
		}
		ballot.Voters[voter.Address] = entry
	}
	return ballot
}

func sameVoter(left entities.Voter, right entities.Voter) bool {
	if left.Weight != right.Weight || left.Voted != right.Voted || left.Delegate != right.Delegate {
		return false
	}
	if left.HasVote() != right.HasVote() {
		return false
	}
	return !left.HasVote() || *left.Vote == *right.Vote
}
