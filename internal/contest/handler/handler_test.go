package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"votum/internal/contest/contesttest"
	"votum/internal/contest/models"
	"votum/internal/contest/service"
	"votum/internal/contest/store"
	"votum/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(store.NewInMemory(), service.WithLogger(logger))
	s.Require().NoError(err)
	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) TestSaveAndRead() {
	f := contesttest.MajorityElection(2, 1, 3)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/contests/"+f.Contest.ID.String(), f.Contest))
	s.Require().Equal(http.StatusOK, rr.Code)
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/businesses/"+f.Business.ID.String(), f.Business))
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/businesses/"+f.Business.ID.String(), nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	got := testutil.UnmarshalResponse[models.PoliticalBusiness](s.T(), rr)
	s.Equal(f.Business.ID, got.ID)
	s.Len(got.Candidates, 3)
	s.Len(got.CountingCircleIDs, 2)
}

func (s *HandlerSuite) TestBusinessWithoutContest() {
	f := contesttest.MajorityElection(1, 1, 2)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/businesses/"+f.Business.ID.String(), f.Business))
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *HandlerSuite) TestInvalidBusiness() {
	f := contesttest.MajorityElection(1, 1, 2)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/contests/"+f.Contest.ID.String(), f.Contest))
	s.Require().Equal(http.StatusOK, rr.Code)

	f.Business.NumberOfMandates = 0
	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/businesses/"+f.Business.ID.String(), f.Business))
	s.Equal(http.StatusBadRequest, rr.Code)
	body := testutil.UnmarshalErrorResponse(s.T(), rr)
	s.Equal("validation_error", body["error"])
}
