package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	ballotdomainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"
	ballothttp "ballotbox/contexts/governance/ballot-engine/transport/http"
)

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{Code: code, Message: message})
}

// writeBallotDomainError maps ballot failures to status codes. The delegate
// check runs before the generic registration check because the former wraps
// the latter.
func (s *Server) writeBallotDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrNotAuthorized):
		writeBallotError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDelegateNotRegistered):
		writeBallotError(w, http.StatusUnprocessableEntity, "delegate_not_registered", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrNotRegistered):
		writeBallotError(w, http.StatusForbidden, "not_registered", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyRegistered):
		writeBallotError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrDelegationCycle):
		writeBallotError(w, http.StatusConflict, "delegation_cycle", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrSelfDelegation):
		writeBallotError(w, http.StatusUnprocessableEntity, "self_delegation", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidProposal):
		writeBallotError(w, http.StatusUnprocessableEntity, "invalid_proposal", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrEmptyProposalList):
		writeBallotError(w, http.StatusBadRequest, "empty_proposal_list", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidBallotInput),
		errors.Is(err, ballotdomainerrors.ErrInvalidAddress):
		writeBallotError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrBallotNotFound):
		writeBallotError(w, http.StatusNotFound, "ballot_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVoterNotFound):
		writeBallotError(w, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrIdempotencyConflict),
		errors.Is(err, ballotdomainerrors.ErrConflict):
		writeBallotError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("ballot request failed",
			"event", "http_ballot_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireBallotCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if caller == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return caller, true
}

func decodeBallotBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

// handleCreateBallot godoc
// @Summary Open a ballot; the caller becomes chairman
// @Tags ballots
// @Accept json
// @Produce json
// @Param X-User-Id header string true "caller address"
// @Param Idempotency-Key header string false "replay key"
// @Param request body ballothttp.CreateBallotRequest true "proposal names"
// @Success 201 {object} ballothttp.CreateBallotResponse
// @Failure 400 {object} ballothttp.ErrorResponse
// @Router /v1/ballots [post]
func (s *Server) handleCreateBallot(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireBallotCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.CreateBallotRequest
	if !decodeBallotBody(w, r, &req) {
		return
	}
	resp, err := s.ballots.Handler.CreateBallotHandler(r.Context(), caller, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListBallots(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.ListBallotsHandler(r.Context())
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBallot(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.GetBallotHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddVoter godoc
// @Summary Register a voter (chairman only)
// @Tags ballots
// @Accept json
// @Produce json
// @Param ballot_id path string true "ballot id"
// @Param X-User-Id header string true "caller address"
// @Param request body ballothttp.AddVoterRequest true "voter"
// @Success 200 {object} ballothttp.AddVoterResponse
// @Failure 403 {object} ballothttp.ErrorResponse
// @Failure 409 {object} ballothttp.ErrorResponse
// @Router /v1/ballots/{ballot_id}/voters [post]
func (s *Server) handleAddVoter(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireBallotCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.AddVoterRequest
	if !decodeBallotBody(w, r, &req) {
		return
	}
	resp, err := s.ballots.Handler.AddVoterHandler(
		r.Context(),
		caller,
		r.Header.Get("Idempotency-Key"),
		r.PathValue("ballot_id"),
		req,
	)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.GetVoterHandler(r.Context(), r.PathValue("ballot_id"), r.PathValue("address"))
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVote godoc
// @Summary Cast the caller's full weight for one proposal
// @Tags ballots
// @Accept json
// @Produce json
// @Param ballot_id path string true "ballot id"
// @Param X-User-Id header string true "caller address"
// @Param request body ballothttp.VoteRequest true "proposal index"
// @Success 200 {object} ballothttp.VoteResponse
// @Failure 409 {object} ballothttp.ErrorResponse
// @Failure 422 {object} ballothttp.ErrorResponse
// @Router /v1/ballots/{ballot_id}/votes [post]
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireBallotCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.VoteRequest
	if !decodeBallotBody(w, r, &req) {
		return
	}
	resp, err := s.ballots.Handler.VoteHandler(
		r.Context(),
		caller,
		r.Header.Get("Idempotency-Key"),
		r.PathValue("ballot_id"),
		req,
	)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDelegate godoc
// @Summary Delegate the caller's weight to another voter
// @Tags ballots
// @Accept json
// @Produce json
// @Param ballot_id path string true "ballot id"
// @Param X-User-Id header string true "caller address"
// @Param request body ballothttp.DelegateRequest true "delegate"
// @Success 200 {object} ballothttp.DelegateResponse
// @Failure 409 {object} ballothttp.ErrorResponse
// @Failure 422 {object} ballothttp.ErrorResponse
// @Router /v1/ballots/{ballot_id}/delegations [post]
func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireBallotCaller(w, r)
	if !ok {
		return
	}
	var req ballothttp.DelegateRequest
	if !decodeBallotBody(w, r, &req) {
		return
	}
	resp, err := s.ballots.Handler.DelegateHandler(
		r.Context(),
		caller,
		r.Header.Get("Idempotency-Key"),
		r.PathValue("ballot_id"),
		req,
	)
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.WinnerHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballots.Handler.TallyHandler(r.Context(), r.PathValue("ballot_id"))
	if err != nil {
		s.writeBallotDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBallotInterface(w http.ResponseWriter, _ *http.Request) {
	methods := s.artifact.Methods()
	resp := ballothttp.InterfaceResponse{
		ContractName: s.artifact.ContractName,
		Methods:      make([]ballothttp.InterfaceMethod, 0, len(methods)),
	}
	for _, method := range methods {
		resp.Methods = append(resp.Methods, ballothttp.InterfaceMethod{
			Name:      method.Name,
			Signature: method.Signature,
			Selector:  method.Selector,
			Mutating:  method.Mutating,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
