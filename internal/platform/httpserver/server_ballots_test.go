package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ballotengine "ballotbox/contexts/governance/ballot-engine"
	ballothttp "ballotbox/contexts/governance/ballot-engine/transport/http"
	"ballotbox/internal/platform/artifacts"
)

func newTestServer() *Server {
	return newTestServerWithOptions(Options{
		CORSAllowedOrigins: []string{"https://cdnjs.cloudflare.com"},
	})
}

func newTestServerWithOptions(options Options) *Server {
	artifact, err := artifacts.Load()
	if err != nil {
		panic(err)
	}
	return New(ballotengine.NewInMemoryModule(nil), artifact, options, nil)
}

func doJSON(server *Server, method string, path string, caller string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-User-Id", caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func createTestBallot(t *testing.T, server *Server, voters ...string) string {
	t.Helper()
	rr := doJSON(server, http.MethodPost, "/v1/ballots", "chair", `{"proposals":["prop1","prop2","prop3"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created ballothttp.CreateBallotResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	for _, voter := range voters {
		rr := doJSON(server, http.MethodPost, "/v1/ballots/"+created.BallotID+"/voters", "chair", `{"voter":"`+voter+`"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("add voter %s: expected 200, got %d body=%s", voter, rr.Code, rr.Body.String())
		}
	}
	return created.BallotID
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ballothttp.ErrorResponse {
	t.Helper()
	var resp ballothttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v body=%s", err, rr.Body.String())
	}
	return resp
}

func TestBallotCommandsRequireUserHeader(t *testing.T) {
	server := newTestServer()
	rr := doJSON(server, http.MethodPost, "/v1/ballots", "", `{"proposals":["a"]}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "missing_user" {
		t.Fatalf("expected missing_user, got %s", code)
	}
}

func TestBallotCommandsRejectInvalidJSON(t *testing.T) {
	server := newTestServer()
	rr := doJSON(server, http.MethodPost, "/v1/ballots", "chair", `{"proposals":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "invalid_json" {
		t.Fatalf("expected invalid_json, got %s", code)
	}
}

func TestBallotVoteDelegateAndWinnerFlow(t *testing.T) {
	server := newTestServer()
	ballotID := createTestBallot(t, server, "alice", "bob", "carol")
	base := "/v1/ballots/" + ballotID

	rr := doJSON(server, http.MethodPost, base+"/delegations", "alice", `{"to":"bob"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(server, http.MethodPost, base+"/votes", "bob", `{"proposal":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var vote ballothttp.VoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &vote); err != nil {
		t.Fatalf("decode vote response: %v", err)
	}
	if vote.Weight != 2 || vote.WinningProposal != 2 {
		t.Fatalf("expected weight 2 winning 2, got %+v", vote)
	}

	rr = doJSON(server, http.MethodPost, base+"/votes", "carol", `{"proposal":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(server, http.MethodGet, base+"/winner", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var winner ballothttp.WinnerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &winner); err != nil {
		t.Fatalf("decode winner response: %v", err)
	}
	if winner.Index != 2 || winner.Name != "prop3" || winner.VoteCount != 2 {
		t.Fatalf("unexpected winner %+v", winner)
	}

	rr = doJSON(server, http.MethodGet, base+"/tally", "", "")
	var tally ballothttp.TallyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally response: %v", err)
	}
	// chair has weight 1 and has not voted
	if tally.TotalVotes != 3 || tally.PendingWeight != 1 || tally.VoterCount != 4 {
		t.Fatalf("unexpected tally %+v", tally)
	}

	rr = doJSON(server, http.MethodGet, base+"/voters/alice", "", "")
	var voter ballothttp.VoterResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &voter); err != nil {
		t.Fatalf("decode voter response: %v", err)
	}
	if !voter.Voted || voter.Delegate != "bob" || voter.Representative != "bob" {
		t.Fatalf("unexpected voter %+v", voter)
	}
}

func TestBallotDomainErrorCodes(t *testing.T) {
	server := newTestServer()
	ballotID := createTestBallot(t, server, "alice", "bob")
	base := "/v1/ballots/" + ballotID

	if rr := doJSON(server, http.MethodPost, base+"/votes", "alice", `{"proposal":0}`); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	cases := []struct {
		name   string
		method string
		path   string
		caller string
		body   string
		status int
		code   string
	}{
		{"non chairman adds voter", http.MethodPost, base + "/voters", "alice", `{"voter":"dave"}`, http.StatusForbidden, "not_authorized"},
		{"duplicate voter", http.MethodPost, base + "/voters", "chair", `{"voter":"bob"}`, http.StatusConflict, "already_registered"},
		{"unregistered voter votes", http.MethodPost, base + "/votes", "mallory", `{"proposal":0}`, http.StatusForbidden, "not_registered"},
		{"double vote", http.MethodPost, base + "/votes", "alice", `{"proposal":1}`, http.StatusConflict, "already_voted"},
		{"proposal out of range", http.MethodPost, base + "/votes", "bob", `{"proposal":7}`, http.StatusUnprocessableEntity, "invalid_proposal"},
		{"missing proposal", http.MethodPost, base + "/votes", "bob", `{}`, http.StatusBadRequest, "invalid_request"},
		{"self delegation", http.MethodPost, base + "/delegations", "bob", `{"to":"bob"}`, http.StatusUnprocessableEntity, "self_delegation"},
		{"delegate outside registry", http.MethodPost, base + "/delegations", "bob", `{"to":"dave"}`, http.StatusUnprocessableEntity, "delegate_not_registered"},
		{"empty proposal list", http.MethodPost, "/v1/ballots", "chair", `{"proposals":[]}`, http.StatusBadRequest, "empty_proposal_list"},
		{"unknown ballot", http.MethodGet, "/v1/ballots/missing/winner", "", "", http.StatusNotFound, "ballot_not_found"},
		{"unknown voter", http.MethodGet, base + "/voters/dave", "", "", http.StatusNotFound, "voter_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(server, tc.method, tc.path, tc.caller, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body.String())
			}
			if code := decodeError(t, rr).Code; code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, code)
			}
		})
	}
}

func TestBallotDelegationCycleIsConflict(t *testing.T) {
	server := newTestServer()
	ballotID := createTestBallot(t, server, "alice", "bob")
	base := "/v1/ballots/" + ballotID

	if rr := doJSON(server, http.MethodPost, base+"/delegations", "alice", `{"to":"bob"}`); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr := doJSON(server, http.MethodPost, base+"/delegations", "bob", `{"to":"alice"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeError(t, rr).Code; code != "delegation_cycle" {
		t.Fatalf("expected delegation_cycle, got %s", code)
	}
}

func TestBallotCreateReplaysIdempotencyKey(t *testing.T) {
	server := newTestServer()
	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/ballots", bytes.NewReader([]byte(body)))
		req.Header.Set("X-User-Id", "chair")
		req.Header.Set("Idempotency-Key", "create-1")
		rr := httptest.NewRecorder()
		server.mux.ServeHTTP(rr, req)
		return rr
	}

	first := send(`{"proposals":["a","b"]}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", first.Code, first.Body.String())
	}
	second := send(`{"proposals":["a","b"]}`)
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d body=%s", second.Code, second.Body.String())
	}
	var a, b ballothttp.CreateBallotResponse
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.BallotID != b.BallotID || !b.Replayed {
		t.Fatalf("expected replay of %s, got %+v", a.BallotID, b)
	}

	conflict := send(`{"proposals":["c"]}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", conflict.Code, conflict.Body.String())
	}
}

func TestBallotInterfaceListsSelectors(t *testing.T) {
	server := newTestServer()
	rr := doJSON(server, http.MethodGet, "/v1/ballots/interface", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp ballothttp.InterfaceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode interface response: %v", err)
	}
	selectors := map[string]string{}
	for _, method := range resp.Methods {
		selectors[method.Name] = method.Selector
	}
	if selectors["vote"] != "0x0121b93f" || selectors["delegate"] != "0x5c19a95c" {
		t.Fatalf("unexpected selectors %v", selectors)
	}
}

func TestArtifactServedWithCORS(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/artifacts/Ballot.json", nil)
	req.Header.Set("Origin", "https://cdnjs.cloudflare.com")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://cdnjs.cloudflare.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
	if !strings.Contains(rr.Body.String(), `"contractName"`) {
		t.Fatalf("expected artifact body, got %s", rr.Body.String())
	}
}

func TestArtifactPreflightSucceeds(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/artifacts/Ballot.json", nil)
	req.Header.Set("Origin", "https://cdnjs.cloudflare.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://cdnjs.cloudflare.com" {
		t.Fatalf("expected allow origin header, got %q", got)
	}
}

func TestArtifactOnDiskOverridesBuiltIn(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Ballot.json"), []byte(`{"contractName":"Local"}`), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	server := newTestServerWithOptions(Options{ArtifactsDir: dir})
	rr := doJSON(server, http.MethodGet, "/artifacts/Ballot.json", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Local") {
		t.Fatalf("expected on-disk artifact, got %s", rr.Body.String())
	}
}

func TestStaticPagesServedFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>ballot</h1>"), 0o600); err != nil {
		t.Fatalf("write page: %v", err)
	}
	server := newTestServerWithOptions(Options{StaticDir: dir})
	rr := doJSON(server, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ballot") {
		t.Fatalf("expected index page, got %d body=%s", rr.Code, rr.Body.String())
	}

	missing := newTestServer()
	if rr := doJSON(missing, http.MethodGet, "/index.html", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without static dir, got %d", rr.Code)
	}
}
