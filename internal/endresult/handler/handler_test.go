package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votum/internal/contest/contesttest"
	contestService "votum/internal/contest/service"
	contestStore "votum/internal/contest/store"
	"votum/internal/endresult/service"
	"votum/internal/endresult/store"
	resultModels "votum/internal/result/models"
	resultService "votum/internal/result/service"
	verificationService "votum/internal/verification/service"
	verificationStore "votum/internal/verification/store"
	id "votum/pkg/domain"
	"votum/pkg/platform/eventstore/memory"
	"votum/pkg/requestcontext"
	"votum/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	fixture contesttest.Fixture
	results *resultService.Service
	base    string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.fixture = contesttest.MajorityElection(1, 1, 2)

	contests, err := contestService.New(contestStore.NewInMemory(), contestService.WithLogger(logger))
	s.Require().NoError(err)
	ctx := context.Background()
	s.Require().NoError(contests.SaveContest(ctx, &s.fixture.Contest))
	s.Require().NoError(contests.SaveBusiness(ctx, &s.fixture.Business))

	events := memory.New()
	s.results = resultService.New(events, contests, resultService.WithLogger(logger))
	verifier := verificationService.New(verificationStore.NewInMemory(), verificationService.LogSender{Logger: logger})
	endResults := service.New(events, contests, store.NewInMemory(),
		service.WithLogger(logger),
		service.WithVerifier(verifier),
	)

	s.router = chi.NewRouter()
	New(endResults, logger).Register(s.router)
	s.base = "/businesses/" + s.fixture.Business.ID.String() + "/end-result"
}

// audited drives the only counting circle to audited tentatively.
func (s *HandlerSuite) audited(first, second int) {
	ctx := requestcontext.WithTenantID(context.Background(), s.fixture.Business.OwnerTenantID)
	key := resultService.Key{BusinessID: s.fixture.Business.ID, CircleID: s.fixture.Business.CountingCircleIDs[0]}
	c := s.fixture.Business.Candidates

	_, err := s.results.StartSubmission(ctx, key)
	s.Require().NoError(err)
	_, err = s.results.EnterCountOfVoters(ctx, key, resultModels.BallotCounts{ReceivedBallots: first + second, AccountedBallots: first + second})
	s.Require().NoError(err)
	_, err = s.results.EnterCandidateResults(ctx, key, resultModels.CandidateEntry{
		Candidates: []resultModels.CandidateVotes{{CandidateID: c[0].ID, Votes: first}, {CandidateID: c[1].ID, Votes: second}},
	})
	s.Require().NoError(err)
	_, err = s.results.FinishSubmission(ctx, key)
	s.Require().NoError(err)
	_, err = s.results.AuditTentatively(ctx, key)
	s.Require().NoError(err)
}

func (s *HandlerSuite) do(tenantID id.TenantID, method, path string, body any) (int, map[string]any) {
	req := testutil.NewJSONRequest(s.T(), method, s.base+path, body)
	req = testutil.WithTenant(req, tenantID, id.UserID(uuid.New()))
	rr := testutil.DoRequest(s.router, req)
	if rr.Body.Len() == 0 {
		return rr.Code, nil
	}
	return rr.Code, testutil.UnmarshalErrorResponse(s.T(), rr)
}

func (s *HandlerSuite) owner(method, path string, body any) (int, map[string]any) {
	return s.do(s.fixture.Business.OwnerTenantID, method, path, body)
}

func (s *HandlerSuite) TestFinalizeAsOwner() {
	t := s.T()
	s.audited(2, 1)

	testutil.Given(t, "every counting circle is audited", func(t *testing.T) {
		status, body := s.owner(http.MethodGet, "/", nil)
		s.Require().Equal(http.StatusOK, status)
		s.Equal(true, body["all_counting_circles_done"])
		s.Equal(true, body["ready_for_finalization"])
	})

	testutil.When(t, "the owner finalizes", func(t *testing.T) {
		status, body := s.owner(http.MethodPost, "/finalize", map[string]any{})
		s.Require().Equal(http.StatusOK, status)
		s.Equal(true, body["finalized"])
	})

	testutil.Then(t, "a second finalize is an illegal transition", func(t *testing.T) {
		status, body := s.owner(http.MethodPost, "/finalize", map[string]any{})
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("invalid_state_transition", body["error"])
	})

	testutil.Then(t, "the owner can revert", func(t *testing.T) {
		status, body := s.owner(http.MethodPost, "/revert-finalization", map[string]any{})
		s.Require().Equal(http.StatusOK, status)
		s.Equal(false, body["finalized"])
	})
}

func (s *HandlerSuite) TestLotDecisionsOverHTTP() {
	s.audited(2, 2)
	c := s.fixture.Business.Candidates

	status, body := s.owner(http.MethodGet, "/lot-decisions", nil)
	s.Require().Equal(http.StatusOK, status)
	groups, ok := body["candidates"].([]any)
	s.Require().True(ok)
	s.Len(groups, 1)

	status, body = s.owner(http.MethodPost, "/finalize", map[string]any{})
	s.Equal(http.StatusUnprocessableEntity, status)
	s.Equal("open_lot_decisions", body["error"])

	status, _ = s.owner(http.MethodPost, "/lot-decisions", lotDecisionsRequest{
		Candidates: []candidateDecision{{CandidateID: c[0].ID, Rank: 2}, {CandidateID: c[1].ID, Rank: 1}},
	})
	s.Require().Equal(http.StatusOK, status)

	status, body = s.owner(http.MethodGet, "/lot-decisions", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Empty(body["candidates"])
	decided, ok := body["decided"].(map[string]any)
	s.Require().True(ok)
	s.Len(decided["candidates"], 1)

	status, body = s.owner(http.MethodPost, "/finalize", map[string]any{})
	s.Require().Equal(http.StatusOK, status)
	s.Equal(true, body["finalized"])
}

func (s *HandlerSuite) TestErrors() {
	s.audited(2, 1)
	stranger := id.TenantID(uuid.New())

	s.Run("other tenants need a confirmed token", func() {
		status, body := s.do(stranger, http.MethodPost, "/finalize", map[string]any{})
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("verification_required", body["error"])
	})

	s.Run("prepare issues a token", func() {
		status, body := s.do(stranger, http.MethodPost, "/prepare-finalize", nil)
		s.Require().Equal(http.StatusAccepted, status)
		s.NotEmpty(body["verification_token_id"])
		s.Equal("finalize", body["action"])

		status, body = s.do(stranger, http.MethodPost, "/finalize", finalizeRequest{VerificationTokenID: body["verification_token_id"].(string)})
		s.Equal(http.StatusUnprocessableEntity, status)
		s.Equal("not_verified", body["error"])
	})

	s.Run("ranks start at one", func() {
		status, body := s.owner(http.MethodPost, "/lot-decisions", lotDecisionsRequest{
			Candidates: []candidateDecision{{CandidateID: s.fixture.Business.Candidates[0].ID, Rank: 0}},
		})
		s.Equal(http.StatusBadRequest, status)
		s.Equal("validation_error", body["error"])
	})

	s.Run("a malformed token id is rejected", func() {
		status, _ := s.owner(http.MethodPost, "/finalize", finalizeRequest{VerificationTokenID: "nope"})
		s.Equal(http.StatusBadRequest, status)
	})

	s.Run("malformed business ids are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/businesses/nope/end-result/", nil))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown businesses are not found", func() {
		path := "/businesses/" + uuid.NewString() + "/end-result/"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
		s.Equal(http.StatusNotFound, rr.Code)
	})
}
