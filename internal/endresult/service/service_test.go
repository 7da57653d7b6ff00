package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"votum/internal/contest/contesttest"
	contestModels "votum/internal/contest/models"
	"votum/internal/endresult/models"
	"votum/internal/endresult/service/mocks"
	"votum/internal/endresult/store"
	resultModels "votum/internal/result/models"
	verificationModels "votum/internal/verification/models"
	verificationService "votum/internal/verification/service"
	verificationStore "votum/internal/verification/store"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	audit "votum/pkg/platform/audit"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/eventstore/memory"
	"votum/pkg/platform/sentinel"
	"votum/pkg/requestcontext"
)

// =============================================================================
// End Result Service Test Suite
// =============================================================================
// Counting circle results are seeded straight into the event store; the
// aggregator and lot decision tests cover the arithmetic. These tests cover
// loading, storing, the command pipeline and two-phase finalization.

type codeSender struct {
	code string
}

func (c *codeSender) Send(_ context.Context, _ *verificationModels.Token, code string) error {
	c.code = code
	return nil
}

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	contests     *mocks.MockContestReader
	auditor      *mocks.MockAuditPublisher
	events       *memory.Store
	results      *store.InMemory
	sender       *codeSender
	verification *verificationService.Service
	fixture      contesttest.Fixture
	service      *Service
	ctx          context.Context
	tenantID     id.TenantID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)
	s.events = memory.New()
	s.results = store.NewInMemory()
	s.sender = &codeSender{}
	s.verification = verificationService.New(verificationStore.NewInMemory(), s.sender)

	s.tenantID = id.TenantID(uuid.New())
	s.ctx = requestcontext.WithTenantID(context.Background(), s.tenantID)
	s.ctx = requestcontext.WithRequestID(s.ctx, "req-1")

	s.use(contesttest.MajorityElection(1, 3, 5))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// use switches the suite to another contest configuration.
func (s *ServiceSuite) use(f contesttest.Fixture) {
	s.fixture = f
	s.contests = mocks.NewMockContestReader(s.ctrl)
	s.contests.EXPECT().BusinessWithContest(gomock.Any(), f.Business.ID).
		Return(&s.fixture.Business, &s.fixture.Contest, nil).AnyTimes()
	s.service = New(s.events, s.contests, s.results,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
		WithVerifier(s.verification),
		WithLoadConcurrency(2),
	)
}

func (s *ServiceSuite) businessID() id.PoliticalBusinessID {
	return s.fixture.Business.ID
}

func (s *ServiceSuite) candidate(i int) id.CandidateID {
	return s.fixture.Business.Candidates[i].ID
}

// seed appends an audited counting circle result with conventional votes in
// candidate order.
func (s *ServiceSuite) seed(circle, accounted int, votes []int, secondary ...resultModels.SecondaryEntry) {
	b := s.fixture.Business
	cid := b.CountingCircleIDs[circle]
	rid := id.NewResultID(b.ID, cid)
	entry := resultModels.CandidateResultsEntered{Secondary: secondary}
	for i, v := range votes {
		entry.Candidates = append(entry.Candidates, resultModels.CandidateVotes{CandidateID: b.Candidates[i].ID, Votes: v})
	}
	s.appendResult(rid,
		resultModels.SubmissionStarted{ResultID: rid, PoliticalBusinessID: b.ID, CountingCircleID: cid},
		resultModels.CountOfVotersEntered{Ballots: resultModels.BallotCounts{ReceivedBallots: accounted, AccountedBallots: accounted}},
		entry,
		resultModels.SubmissionFinished{},
		resultModels.AuditedTentatively{},
	)
}

func (s *ServiceSuite) appendResult(rid id.ResultID, events ...resultModels.Event) {
	streamID := resultModels.StreamID(rid)
	existing, err := s.events.Load(s.ctx, streamID)
	s.Require().NoError(err)
	version := int64(len(existing))

	envs := make([]eventstore.Envelope, 0, len(events))
	for i, e := range events {
		env, err := eventstore.NewEnvelope(streamID, resultModels.AggregateType, version+int64(i)+1, e.EventType(), e,
			eventstore.Metadata{PartitionKey: s.businessID().String()}, time.Now())
		s.Require().NoError(err)
		envs = append(envs, env)
	}
	s.Require().NoError(s.events.Append(s.ctx, streamID, version, envs))
}

// seedTie leaves the third and fourth candidate tied for the last of three
// mandates.
func (s *ServiceSuite) seedTie() {
	s.seed(0, 300, []int{300, 200, 100, 100, 50})
}

func (s *ServiceSuite) expectAudit(action audit.AuditEvent) {
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.Equal(string(action), e.Action)
		s.Equal(s.businessID().String(), e.Subject)
		return nil
	})
}

func (s *ServiceSuite) resolveTie() *models.EndResult {
	s.expectAudit(audit.EventLotDecisionsUpdated)
	er, err := s.service.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{
		Candidates: []models.CandidateLotDecision{
			{CandidateID: s.candidate(2), Rank: 4},
			{CandidateID: s.candidate(3), Rank: 3},
		},
	})
	s.Require().NoError(err)
	return er
}

// confirmed issues a finalize or revert token and confirms it.
func (s *ServiceSuite) confirmed(prepare func(context.Context, id.PoliticalBusinessID) (*verificationModels.Token, error)) id.VerificationTokenID {
	token, err := prepare(s.ctx, s.businessID())
	s.Require().NoError(err)
	_, err = s.verification.Confirm(s.ctx, token.ID, s.sender.code)
	s.Require().NoError(err)
	return token.ID
}

func (s *ServiceSuite) assertCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

func candidateStates(er *models.EndResult) map[id.CandidateID]models.CandidateState {
	out := make(map[id.CandidateID]models.CandidateState)
	for _, c := range er.Majority.Candidates {
		out[c.CandidateID] = c.State
	}
	return out
}

// =============================================================================
// Recompute
// =============================================================================

func (s *ServiceSuite) TestRecomputeAcrossCountingCircles() {
	s.use(contesttest.MajorityElection(6, 3, 5, contesttest.WithAlgorithm(contestModels.MandateAlgorithmAbsoluteMajority)))
	for i := range 6 {
		s.seed(i, 100, []int{90, 80, 70, 20, 10})
	}

	er, err := s.service.Recompute(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Equal(6, er.CountOfDoneCountingCircles)
	s.Equal(301, er.Majority.AbsoluteMajority)
	s.True(er.ReadyForFinalization)

	states := candidateStates(er)
	s.Equal(models.CandidateStateElected, states[s.candidate(2)])
	s.Equal(models.CandidateStateAbsoluteMajorityNotReached, states[s.candidate(3)])

	stored, err := s.results.Get(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Equal(er, stored)
}

func (s *ServiceSuite) TestPartialResultWhileCirclesOpen() {
	s.use(contesttest.MajorityElection(3, 1, 2))
	s.seed(0, 10, []int{6, 4})

	er, err := s.service.Get(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.True(er.IsPartial())
	s.Equal(1, er.CountOfDoneCountingCircles)
	s.Equal(3, er.TotalCountOfCountingCircles)
	s.False(er.LotDecisionEnabled)
}

func (s *ServiceSuite) TestGetComputesOnFirstRead() {
	s.seedTie()

	_, err := s.results.Get(s.ctx, s.businessID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	er, err := s.service.Get(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Equal(2, er.OpenLotDecisions())

	_, err = s.results.Get(s.ctx, s.businessID())
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestUnknownBusiness() {
	unknown := id.PoliticalBusinessID(uuid.New())
	s.contests.EXPECT().BusinessWithContest(gomock.Any(), unknown).
		Return(nil, nil, dErrors.New(dErrors.CodeNotFound, "political business not found"))

	_, err := s.service.Recompute(s.ctx, unknown)
	s.assertCode(err, dErrors.CodeNotFound)
}

// =============================================================================
// Lot decisions
// =============================================================================

func (s *ServiceSuite) TestAvailableLotDecisionsNeedEveryCircleDone() {
	s.use(contesttest.MajorityElection(2, 3, 5))
	s.seed(0, 300, []int{300, 200, 100, 100, 50})

	_, err := s.service.GetAvailableLotDecisions(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeLotDecisionsNotAllowed)

	s.seed(1, 10, []int{10, 5, 1, 1, 0})
	available, err := s.service.GetAvailableLotDecisions(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Len(available.Candidates, 1)
}

func (s *ServiceSuite) TestLotDecisionResolvesTie() {
	s.seedTie()

	available, err := s.service.GetAvailableLotDecisions(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Require().Len(available.Candidates, 1)
	s.Equal(3, available.Candidates[0].RankFrom)
	s.Equal(4, available.Candidates[0].RankTo)

	er := s.resolveTie()
	available, err = s.service.GetAvailableLotDecisions(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Empty(available.Candidates)
	s.Require().Len(available.Decided.Candidates, 1)
	s.Equal(3, available.Decided.Candidates[0].Candidates[0].Rank)
	states := candidateStates(er)
	s.Equal(models.CandidateStateElected, states[s.candidate(3)])
	s.Equal(models.CandidateStateNotElected, states[s.candidate(2)])
	s.Zero(er.OpenLotDecisions())
	s.True(er.ReadyForFinalization)
	s.Equal(int64(1), er.DecisionsVersion)

	envs, err := s.service.History(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Require().Len(envs, 1)
	s.Equal(models.EventLotDecisionsUpdated, envs[0].Type)
	s.Equal(s.tenantID.String(), envs[0].Metadata.TenantID)
	s.Equal("req-1", envs[0].Metadata.RequestID)
	s.Equal(s.businessID().String(), envs[0].Metadata.PartitionKey)
}

func (s *ServiceSuite) TestLotDecisionRejections() {
	s.Run("not allowed while circles are open", func() {
		s.use(contesttest.MajorityElection(2, 3, 5))
		s.seedTie()
		_, err := s.service.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{})
		s.assertCode(err, dErrors.CodeLotDecisionsNotAllowed)
	})

	s.Run("a required decision cannot be left out", func() {
		s.use(contesttest.MajorityElection(1, 3, 5))
		s.seedTie()
		_, err := s.service.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{
			Candidates: []models.CandidateLotDecision{{CandidateID: s.candidate(2), Rank: 4}},
		})
		s.assertCode(err, dErrors.CodeRequiredLotDecisionMissing)

		envs, err := s.service.History(s.ctx, s.businessID())
		s.Require().NoError(err)
		s.Empty(envs)
	})
}

func (s *ServiceSuite) TestSecondaryDecisionsFollowPrimary() {
	s.use(contesttest.MajorityElection(1, 3, 5, contesttest.WithSecondaryElection(1, 3)))
	se := s.fixture.Business.SecondaryElections[0]
	entry := resultModels.SecondaryEntry{SecondaryElectionID: se.ID}
	for i, v := range []int{100, 100, 20} {
		entry.Candidates = append(entry.Candidates, resultModels.CandidateVotes{CandidateID: se.Candidates[i].ID, Votes: v})
	}
	s.seed(0, 300, []int{300, 200, 100, 100, 50}, entry)

	update := models.SecondaryLotDecisionsUpdated{Decisions: []models.SecondaryLotDecision{
		{SecondaryElectionID: se.ID, CandidateID: se.Candidates[0].ID, Rank: 2},
		{SecondaryElectionID: se.ID, CandidateID: se.Candidates[1].ID, Rank: 1},
	}}

	_, err := s.service.UpdateSecondaryLotDecisions(s.ctx, s.businessID(), update)
	s.assertCode(err, dErrors.CodePrimaryLotDecisionsPending)

	_, err = s.service.UpdateSecondaryLotDecisions(s.ctx, s.businessID(), models.SecondaryLotDecisionsUpdated{
		Decisions: update.Decisions[:1],
	})
	s.assertCode(err, dErrors.CodePartialGroupResolution)

	s.resolveTie()
	s.expectAudit(audit.EventSecondaryLotDecisionsUpdated)
	er, err := s.service.UpdateSecondaryLotDecisions(s.ctx, s.businessID(), update)
	s.Require().NoError(err)
	s.Zero(er.OpenLotDecisions())
	s.Equal(se.Candidates[1].ID, er.Secondary[0].Candidates[0].CandidateID)
	s.Equal(models.CandidateStateElected, er.Secondary[0].Candidates[0].State)
}

func (s *ServiceSuite) TestLockedContestRefusesCommands() {
	s.seedTie()
	s.fixture.Contest.State = contestModels.ContestStatePastLocked

	_, err := s.service.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{})
	s.assertCode(err, dErrors.CodeContestLocked)

	_, err = s.service.PrepareFinalize(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeContestLocked)
}

// conflictingStore lets another writer win the race for the end result
// stream.
type conflictingStore struct {
	*memory.Store
}

func (c conflictingStore) Append(ctx context.Context, streamID string, expectedVersion int64, events []eventstore.Envelope) error {
	if events[0].AggregateType != models.AggregateType {
		return c.Store.Append(ctx, streamID, expectedVersion, events)
	}
	rival, err := eventstore.NewEnvelope(streamID, models.AggregateType, expectedVersion+1, models.EventLotDecisionsUpdated, models.LotDecisionsUpdated{}, eventstore.Metadata{}, time.Now())
	if err != nil {
		return err
	}
	if err := c.Store.Append(ctx, streamID, expectedVersion, []eventstore.Envelope{rival}); err != nil {
		return err
	}
	return c.Store.Append(ctx, streamID, expectedVersion, events)
}

func (s *ServiceSuite) TestVersionConflictIsRetryable() {
	s.seedTie()
	svc := New(conflictingStore{Store: s.events}, s.contests, s.results)

	_, err := svc.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{
		Candidates: []models.CandidateLotDecision{
			{CandidateID: s.candidate(2), Rank: 4},
			{CandidateID: s.candidate(3), Rank: 3},
		},
	})
	s.assertCode(err, dErrors.CodeVersionConflict)
	s.True(dErrors.IsRetryable(err))
}

func (s *ServiceSuite) TestAuditFailureAbortsCommand() {
	s.seedTie()
	var appended bool
	svc := New(s.events, s.contests, s.results,
		WithAuditPublisher(s.auditor),
		WithTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
			err := fn(ctx)
			appended = err == nil
			return err
		}),
	)
	s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("outbox unavailable"))

	_, err := svc.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{
		Candidates: []models.CandidateLotDecision{
			{CandidateID: s.candidate(2), Rank: 4},
			{CandidateID: s.candidate(3), Rank: 3},
		},
	})
	s.assertCode(err, dErrors.CodeInternal)
	s.False(appended)
}

// =============================================================================
// Finalization
// =============================================================================

func (s *ServiceSuite) TestPrepareFinalizeRequiresResolvedTies() {
	s.seedTie()

	_, err := s.service.PrepareFinalize(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeOpenLotDecisions)

	s.use(contesttest.MajorityElection(2, 1, 2))
	s.seed(0, 10, []int{6, 4})
	_, err = s.service.PrepareFinalize(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeCountingCirclesNotDone)
}

func (s *ServiceSuite) TestFinalizeAndRevert() {
	s.seedTie()
	s.resolveTie()

	s.Run("without a token", func() {
		s.expectAudit(audit.EventFinalizationRejected)
		_, err := s.service.Finalize(s.ctx, s.businessID(), nil)
		s.assertCode(err, dErrors.CodeVerificationRequired)
	})

	s.Run("with an unconfirmed token", func() {
		token, err := s.service.PrepareFinalize(s.ctx, s.businessID())
		s.Require().NoError(err)
		s.expectAudit(audit.EventFinalizationRejected)
		_, err = s.service.Finalize(s.ctx, s.businessID(), &token.ID)
		s.assertCode(err, dErrors.CodeNotVerified)
	})

	tokenID := s.confirmed(s.service.PrepareFinalize)
	s.expectAudit(audit.EventEndResultFinalized)
	er, err := s.service.Finalize(s.ctx, s.businessID(), &tokenID)
	s.Require().NoError(err)
	s.True(er.Finalized)
	s.False(er.LotDecisionEnabled)

	finalized, err := s.service.IsFinalized(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.True(finalized)

	_, err = s.verification.Lookup(s.ctx, tokenID)
	s.assertCode(err, dErrors.CodeNotFound)

	_, err = s.service.PrepareFinalize(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeInvalidStateTransition)

	_, err = s.service.UpdateLotDecisions(s.ctx, s.businessID(), models.LotDecisionsUpdated{})
	s.assertCode(err, dErrors.CodeLotDecisionsNotAllowed)

	revertID := s.confirmed(s.service.PrepareRevertFinalization)
	s.expectAudit(audit.EventEndResultFinalizationReverted)
	er, err = s.service.RevertFinalization(s.ctx, s.businessID(), &revertID)
	s.Require().NoError(err)
	s.False(er.Finalized)
	s.True(er.ReadyForFinalization)

	_, err = s.service.PrepareRevertFinalization(s.ctx, s.businessID())
	s.assertCode(err, dErrors.CodeNotFound)
}

func (s *ServiceSuite) TestFinalizeDetectsChangedData() {
	s.use(contesttest.MajorityElection(1, 1, 2))
	s.seed(0, 10, []int{6, 4})
	tokenID := s.confirmed(s.service.PrepareFinalize)

	b := s.fixture.Business
	s.appendResult(id.NewResultID(b.ID, b.CountingCircleIDs[0]), resultModels.CandidateResultsEntered{
		Candidates: []resultModels.CandidateVotes{
			{CandidateID: s.candidate(0), Votes: 7},
			{CandidateID: s.candidate(1), Votes: 3},
		},
	})

	s.expectAudit(audit.EventFinalizationRejected)
	_, err := s.service.Finalize(s.ctx, s.businessID(), &tokenID)
	s.assertCode(err, dErrors.CodeDataChanged)
}

func (s *ServiceSuite) TestOwnerFinalizesWithoutToken() {
	s.use(contesttest.MajorityElection(1, 1, 2))
	s.seed(0, 10, []int{6, 4})
	ctx := requestcontext.WithTenantID(s.ctx, s.fixture.Business.OwnerTenantID)

	s.expectAudit(audit.EventEndResultFinalized)
	er, err := s.service.Finalize(ctx, s.businessID(), nil)
	s.Require().NoError(err)
	s.True(er.Finalized)
}

func (s *ServiceSuite) TestPrepareUsesSnapshotHash() {
	s.use(contesttest.MajorityElection(1, 1, 2))
	s.seed(0, 10, []int{6, 4})
	verifier := mocks.NewMockVerifier(s.ctrl)
	svc := New(s.events, s.contests, s.results, WithVerifier(verifier))

	want := &verificationModels.Token{ID: id.VerificationTokenID(uuid.New())}
	verifier.EXPECT().Issue(gomock.Any(), s.businessID(), verificationModels.ActionFinalize, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.PoliticalBusinessID, _ verificationModels.Action, hash string) (*verificationModels.Token, error) {
			s.Len(hash, 64)
			return want, nil
		})

	token, err := svc.PrepareFinalize(s.ctx, s.businessID())
	s.Require().NoError(err)
	s.Equal(want, token)
}
