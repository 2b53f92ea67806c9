package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized       = errors.New("sender is not chairman")
	ErrAlreadyRegistered   = errors.New("voter is already registered")
	ErrNotRegistered       = errors.New("sender is not a registered voter")
	ErrAlreadyVoted        = errors.New("voter has already voted")
	ErrSelfDelegation      = errors.New("self delegation is not allowed")
	ErrDelegationCycle     = errors.New("delegation cycle detected")
	ErrInvalidProposal     = errors.New("proposal index is out of range")
	ErrEmptyProposalList   = errors.New("proposal list is empty")
	ErrInvalidBallotInput  = errors.New("invalid ballot input")
	ErrInvalidAddress      = errors.New("invalid voter address")
	ErrBallotNotFound      = errors.New("ballot not found")
	ErrVoterNotFound       = errors.New("voter not found")
	ErrConflict            = errors.New("ballot conflict")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
)

// ErrDelegateNotRegistered is reported when a delegation chain ends at an
// address outside the registry. It matches ErrNotRegistered as well.
var ErrDelegateNotRegistered = fmt.Errorf("delegate is not a registered voter: %w", ErrNotRegistered)
