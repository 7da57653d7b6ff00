package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"votum/internal/contest/contesttest"
	contestModels "votum/internal/contest/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

type ResultSuite struct {
	suite.Suite
	fixture contesttest.Fixture
	cc      CommandContext
	now     time.Time
}

func TestResultSuite(t *testing.T) {
	suite.Run(t, new(ResultSuite))
}

func (s *ResultSuite) SetupTest() {
	s.fixture = contesttest.MajorityElection(1, 2, 3, contesttest.WithBallotGroup(1))
	s.cc = CommandContext{
		Business: &s.fixture.Business,
		Settings: SettingsFrom(s.fixture.Contest.Settings),
		UserID:   id.UserID(uuid.New()),
	}
	s.now = time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
}

func (s *ResultSuite) newResult() *CountingCircleResult {
	return NewCountingCircleResult(s.fixture.Business.ID, s.fixture.Business.CountingCircleIDs[0])
}

// apply returns a fold for the events a command decided, failing the test on
// error. Use it as s.apply(r)(r.Command(...)).
func (s *ResultSuite) apply(r *CountingCircleResult) func([]Event, error) []Event {
	return func(events []Event, err error) []Event {
		s.T().Helper()
		s.Require().NoError(err)
		for _, e := range events {
			s.now = s.now.Add(time.Minute)
			r.Apply(Recorded{Version: r.Version + 1, OccurredAt: s.now, Event: e})
		}
		return events
	}
}

func (s *ResultSuite) candidates() []contestModels.Candidate {
	return s.fixture.Business.Candidates
}

// submitted builds a result in SubmissionDone with 10 accounted ballots and
// a consistent final result for 2 mandates.
func (s *ResultSuite) submitted() *CountingCircleResult {
	r := s.newResult()
	c := s.candidates()
	s.apply(r)(r.StartSubmission(s.cc))
	s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 12, BlankBallots: 1, InvalidBallots: 1, AccountedBallots: 10}))
	s.apply(r)(r.EnterCandidateResults(s.cc, CandidateEntry{
		VoteLines: VoteLines{EmptyVotes: 4},
		Candidates: []CandidateVotes{
			{CandidateID: c[0].ID, Votes: 8},
			{CandidateID: c[1].ID, Votes: 5},
			{CandidateID: c[2].ID, Votes: 3},
		},
	}))
	s.apply(r)(r.FinishSubmission(s.cc))
	s.Require().Equal(StateSubmissionDone, r.State)
	return r
}

func (s *ResultSuite) TestLifecycle() {
	s.Run("walks every milestone and records timestamps", func() {
		r := s.submitted()
		s.NotNil(r.SubmissionDoneAt)

		s.apply(r)(r.FlagForCorrection(s.cc, "recount"))
		s.Equal(StateReadyForCorrection, r.State)
		s.Nil(r.SubmissionDoneAt)
		s.NotNil(r.ReadyForCorrectionAt)

		s.apply(r)(r.FinishCorrection(s.cc, ""))
		s.Equal(StateCorrectionDone, r.State)
		s.NotNil(r.SubmissionDoneAt)
		s.Nil(r.ReadyForCorrectionAt)

		s.apply(r)(r.AuditTentatively(s.cc))
		s.True(r.State.IsDone())
		s.apply(r)(r.Plausibilise(s.cc))
		s.Equal(StatePlausibilised, r.State)
		s.apply(r)(r.ResetToAuditedTentatively(s.cc))
		s.Equal(StateAuditedTentatively, r.State)
		s.Nil(r.PlausibilisedAt)

		s.apply(r)(r.ResetToSubmissionFinished(s.cc))
		s.Equal(StateSubmissionDone, r.State)
		s.False(r.State.IsDone())
		s.Equal(8, r.Candidates[s.candidates()[0].ID].Votes.Total())
	})

	s.Run("rejects commands outside their states", func() {
		r := s.newResult()
		_, err := r.EnterCountOfVoters(s.cc, BallotCounts{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))

		done := s.submitted()
		_, err = done.StartSubmission(s.cc)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
		_, err = done.Plausibilise(s.cc)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal("submission_done", de.Details["state"])
	})

	s.Run("contest lock is checked before the state", func() {
		r := s.newResult()
		locked := s.cc
		locked.ContestLocked = true
		for _, cmd := range []func() ([]Event, error){
			func() ([]Event, error) { return r.StartSubmission(locked) },
			func() ([]Event, error) { return r.AuditTentatively(locked) },
			func() ([]Event, error) { return r.Unpublish(locked) },
		} {
			_, err := cmd()
			s.True(dErrors.HasCode(err, dErrors.CodeContestLocked))
		}
	})

	s.Run("leaving the done milestone is refused while finalized", func() {
		r := s.submitted()
		s.apply(r)(r.AuditTentatively(s.cc))
		finalized := s.cc
		finalized.EndResultFinalized = true
		_, err := r.ResetToSubmissionFinished(finalized)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})
}

func (s *ResultSuite) TestSubmissionGuards() {
	s.Run("inconsistent counts are an invariant violation", func() {
		r := s.newResult()
		s.apply(r)(r.StartSubmission(s.cc))
		s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 10, AccountedBallots: 9}))
		s.apply(r)(r.EnterCandidateResults(s.cc, CandidateEntry{
			Candidates: []CandidateVotes{{CandidateID: s.candidates()[0].ID, Votes: 3}},
		}))

		_, err := r.FinishSubmission(s.cc)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Contains(err.Error(), "accounted ballots 9")
		s.Contains(err.Error(), "mandates 2 x accounted ballots 9")
	})

	s.Run("open bundles block submission before counts are checked", func() {
		r := s.newResult()
		s.apply(r)(r.StartSubmission(s.cc))
		s.apply(r)(r.DefineEntry(s.cc, EntryDefinition{Type: EntryTypeDetailed, BallotBundleSize: 50}))
		s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 10, AccountedBallots: 9}))
		s.apply(r)(r.CreateBallotBundle(s.cc, id.BallotBundleID(uuid.New()), 1))

		_, err := r.FinishSubmission(s.cc)
		s.True(dErrors.HasCode(err, dErrors.CodeBundlesInProgress))
	})

	s.Run("identity is skipped until candidate votes exist", func() {
		r := s.newResult()
		s.apply(r)(r.StartSubmission(s.cc))
		s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 10, BlankBallots: 2, AccountedBallots: 8}))
		s.apply(r)(r.FinishSubmission(s.cc))
		s.Equal(StateSubmissionDone, r.State)
	})

	s.Run("unknown candidates are rejected", func() {
		r := s.newResult()
		s.apply(r)(r.StartSubmission(s.cc))
		_, err := r.EnterCandidateResults(s.cc, CandidateEntry{
			Candidates: []CandidateVotes{{CandidateID: id.CandidateID(uuid.New()), Votes: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("entries naming an id twice are rejected", func() {
		r := s.newResult()
		s.apply(r)(r.StartSubmission(s.cc))
		c := s.candidates()
		_, err := r.EnterCandidateResults(s.cc, CandidateEntry{
			Candidates: []CandidateVotes{{CandidateID: c[0].ID, Votes: 1}, {CandidateID: c[0].ID, Votes: 2}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCandidate))

		f := contesttest.MajorityElection(1, 1, 2, contesttest.WithSecondaryElection(1, 2))
		se := f.Business.SecondaryElections[0]
		cc := CommandContext{Business: &f.Business, Settings: SettingsFrom(f.Contest.Settings)}
		secondary := NewCountingCircleResult(f.Business.ID, f.Business.CountingCircleIDs[0])
		s.apply(secondary)(secondary.StartSubmission(cc))
		_, err = secondary.EnterCandidateResults(cc, CandidateEntry{Secondary: []SecondaryEntry{{
			SecondaryElectionID: se.ID,
			Candidates:          []CandidateVotes{{CandidateID: se.Candidates[1].ID, Votes: 1}, {CandidateID: se.Candidates[1].ID, Votes: 1}},
		}}})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCandidate))
		_, err = secondary.EnterCandidateResults(cc, CandidateEntry{Secondary: []SecondaryEntry{
			{SecondaryElectionID: se.ID}, {SecondaryElectionID: se.ID},
		}})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCandidate))

		p := contesttest.ProportionalElection(1, 2, 2, 1)
		pcc := CommandContext{Business: &p.Business, Settings: SettingsFrom(p.Contest.Settings)}
		proportional := NewCountingCircleResult(p.Business.ID, p.Business.CountingCircleIDs[0])
		s.apply(proportional)(proportional.StartSubmission(pcc))
		list := p.Business.Lists[0].ID
		_, err = proportional.EnterCandidateResults(pcc, CandidateEntry{
			Lists: []ListVotes{{ListID: list, Votes: 3}, {ListID: list, Votes: 4}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateCandidate))
	})

	s.Run("detailed entry can be enforced", func() {
		enforced := s.cc
		enforced.Settings.EnforceDetailedEntry = true
		r := s.newResult()
		s.apply(r)(r.StartSubmission(enforced))
		_, err := r.DefineEntry(enforced, EntryDefinition{Type: EntryTypeFinalResults})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		s.apply(r)(r.DefineEntry(enforced, EntryDefinition{Type: EntryTypeDetailed}))
		_, err = r.EnterCandidateResults(enforced, CandidateEntry{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ResultSuite) TestBallotGroupsAndBundles() {
	r := s.newResult()
	c := s.candidates()
	s.apply(r)(r.StartSubmission(s.cc))
	s.apply(r)(r.DefineEntry(s.cc, EntryDefinition{Type: EntryTypeDetailed}))
	s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 6, AccountedBallots: 6}))

	// the group lists one candidate, so each of its 2 ballots leaves one empty line
	group := s.fixture.Business.BallotGroups[0]
	s.apply(r)(r.EnterBallotGroupResults(s.cc, []BallotGroupCount{{BallotGroupID: group.ID, Ballots: 2}}))
	s.Equal(2, r.Candidates[c[0].ID].Votes.BallotGroup)
	s.Equal(2, r.BallotGroupEmptyVotes)

	bundleID := id.BallotBundleID(uuid.New())
	s.apply(r)(r.CreateBallotBundle(s.cc, bundleID, 1))
	s.apply(r)(r.SubmitBallotBundle(s.cc, bundleID, BundleContent{
		Ballots:    4,
		VoteLines:  VoteLines{EmptyVotes: 1, InvalidVotes: 1},
		Candidates: []CandidateVotes{{CandidateID: c[1].ID, Votes: 4}, {CandidateID: c[2].ID, Votes: 2}},
	}))
	s.Zero(r.Candidates[c[1].ID].Votes.Bundle, "unreviewed bundles contribute nothing")

	_, err := r.ReviewBallotBundle(s.cc, bundleID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "creator cannot review")

	reviewer := s.cc
	reviewer.UserID = id.UserID(uuid.New())
	s.apply(r)(r.RejectBallotBundle(reviewer, bundleID))
	s.Equal(BundleStateInCorrection, r.Bundles[bundleID].State)
	s.apply(r)(r.SubmitBallotBundle(s.cc, bundleID, BundleContent{
		Ballots:    4,
		VoteLines:  VoteLines{EmptyVotes: 1, InvalidVotes: 1},
		Candidates: []CandidateVotes{{CandidateID: c[1].ID, Votes: 4}, {CandidateID: c[2].ID, Votes: 2}},
	}))
	s.apply(r)(r.ReviewBallotBundle(reviewer, bundleID))
	s.Equal(4, r.Candidates[c[1].ID].Votes.Bundle)

	// 2 mandates x 6 ballots = 2 + 4 + 2 candidate votes + 3 empty + 1 invalid
	s.apply(r)(r.FinishSubmission(s.cc))
	s.Equal(StateSubmissionDone, r.State)
	total := r.Subtotal()
	s.Equal(3, total.EmptyVotes)
	s.Equal(1, total.InvalidVotes)
}

func (s *ResultSuite) TestElectronicResultsCombineWithConventional() {
	r := s.newResult()
	c := s.candidates()
	s.apply(r)(r.StartSubmission(s.cc))
	s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 2, AccountedBallots: 2}))
	s.apply(r)(r.EnterCandidateResults(s.cc, CandidateEntry{
		Candidates: []CandidateVotes{{CandidateID: c[0].ID, Votes: 2}, {CandidateID: c[1].ID, Votes: 2}},
	}))
	s.apply(r)(r.ImportElectronicResults(s.cc, ElectronicEntry{
		Subtotal:   TallySubtotal{BallotCounts: BallotCounts{ReceivedBallots: 3, AccountedBallots: 3}, VoteLines: VoteLines{EmptyVotes: 1}},
		Candidates: []CandidateVotes{{CandidateID: c[0].ID, Votes: 3}, {CandidateID: c[2].ID, Votes: 2}},
	}))
	s.apply(r)(r.FinishSubmission(s.cc))

	s.Equal(VoteSource{Conventional: 2, Electronic: 3}, r.Candidates[c[0].ID].Votes)
	s.Equal(5, r.Subtotal().AccountedBallots)
	s.Equal(5, r.Candidates[c[0].ID].Votes.Total())
}

// A published result under "publish only after audit" is withdrawn when it
// is flagged for correction; under "publish before audit" it stays.
func (s *ResultSuite) TestFlagForCorrectionUnpublish() {
	beforeAudit := s.cc
	beforeAudit.Settings = SettingsFrom(contestModels.CantonSettings{PublishResultsBeforeAuditedTentatively: true})

	s.Run("publish only after audit", func() {
		// published while the canton still allowed it, then the policy tightened
		r := s.submitted()
		s.apply(r)(r.Publish(beforeAudit))
		s.Require().True(r.Published)

		events := s.apply(r)(r.FlagForCorrection(s.cc, ""))
		s.Require().Len(events, 2)
		s.Equal(EventUnpublished, events[1].EventType())
		s.False(r.Published)
	})

	s.Run("publish before audit", func() {
		r := s.submitted()
		s.apply(r)(r.Publish(beforeAudit))
		s.Require().True(r.Published)

		events := s.apply(r)(r.FlagForCorrection(beforeAudit, ""))
		s.Require().Len(events, 1)
		s.Equal(EventFlaggedForCorrection, events[0].EventType())
		s.True(r.Published)
	})

	s.Run("injected policy decides", func() {
		cc := beforeAudit
		cc.Settings.UnpublishOnCorrection = func(*CountingCircleResult, Settings) bool { return false }
		r := s.submitted()
		s.apply(r)(r.Publish(cc))
		cc.Settings.PublishResultsBeforeAuditedTentatively = false

		events := s.apply(r)(r.FlagForCorrection(cc, ""))
		s.Len(events, 1)
		s.True(r.Published)
	})

	s.Run("publishing before audit needs the canton setting", func() {
		r := s.submitted()
		_, err := r.Publish(s.cc)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})
}

// Resetting an audited result to SubmissionDone leaves it in a state where
// publication needs the pre-audit canton setting.
func (s *ResultSuite) TestResetToSubmissionFinishedUnpublish() {
	s.Run("publish only after audit withdraws the publication", func() {
		r := s.submitted()
		s.apply(r)(r.AuditTentatively(s.cc))
		s.apply(r)(r.Publish(s.cc))

		events := s.apply(r)(r.ResetToSubmissionFinished(s.cc))
		s.Require().Len(events, 2)
		s.Equal(EventResettedToSubmissionFinished, events[0].EventType())
		s.Equal(EventUnpublished, events[1].EventType())
		s.Equal(StateSubmissionDone, r.State)
		s.False(r.Published)

		_, err := r.Publish(s.cc)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStateTransition))
	})

	s.Run("publish before audit keeps it", func() {
		cc := s.cc
		cc.Settings = SettingsFrom(contestModels.CantonSettings{PublishResultsBeforeAuditedTentatively: true})
		r := s.submitted()
		s.apply(r)(r.AuditTentatively(cc))
		s.apply(r)(r.Publish(cc))

		events := s.apply(r)(r.ResetToSubmissionFinished(cc))
		s.Require().Len(events, 1)
		s.Equal(StateSubmissionDone, r.State)
		s.True(r.Published)
	})

	s.Run("unpublished results emit nothing extra", func() {
		r := s.submitted()
		s.apply(r)(r.AuditTentatively(s.cc))

		events := s.apply(r)(r.ResetToSubmissionFinished(s.cc))
		s.Len(events, 1)
	})
}

// Resetting a result flagged for correction zeroes every conventional count
// and drops its bundles; re-entering starts from nothing.
func (s *ResultSuite) TestResetLeavesNoResidue() {
	r := s.newResult()
	c := s.candidates()
	s.apply(r)(r.StartSubmission(s.cc))
	s.apply(r)(r.DefineEntry(s.cc, EntryDefinition{Type: EntryTypeDetailed}))
	s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 10, AccountedBallots: 10}))
	s.apply(r)(r.EnterCandidateResults(s.cc, CandidateEntry{
		Candidates: []CandidateVotes{
			{CandidateID: c[0].ID, Votes: 5},
			{CandidateID: c[1].ID, Votes: 3},
			{CandidateID: c[2].ID, Votes: 2},
		},
	}))
	bundleID := id.BallotBundleID(uuid.New())
	reviewer := s.cc
	reviewer.UserID = id.UserID(uuid.New())
	s.apply(r)(r.CreateBallotBundle(s.cc, bundleID, 1))
	s.apply(r)(r.SubmitBallotBundle(s.cc, bundleID, BundleContent{
		Ballots:    5,
		VoteLines:  VoteLines{EmptyVotes: 4},
		Candidates: []CandidateVotes{{CandidateID: c[0].ID, Votes: 4}, {CandidateID: c[1].ID, Votes: 2}},
	}))
	s.apply(r)(r.ReviewBallotBundle(reviewer, bundleID))
	s.apply(r)(r.FinishSubmission(s.cc))
	s.apply(r)(r.FlagForCorrection(s.cc, "start over"))
	s.Require().Equal(StateReadyForCorrection, r.State)

	s.apply(r)(r.Reset(s.cc))
	s.Equal(StateSubmissionOngoing, r.State)
	s.Empty(r.Bundles)
	for _, cr := range r.Candidates {
		s.Zero(cr.Votes.Total(), "candidate %s", cr.CandidateID)
	}
	s.Equal(BallotCounts{}, r.Ballots)

	s.apply(r)(r.EnterCountOfVoters(s.cc, BallotCounts{ReceivedBallots: 10, AccountedBallots: 10}))
	s.apply(r)(r.EnterCandidateResults(s.cc, CandidateEntry{
		VoteLines: VoteLines{EmptyVotes: 4},
		Candidates: []CandidateVotes{
			{CandidateID: c[0].ID, Votes: 7},
			{CandidateID: c[1].ID, Votes: 6},
			{CandidateID: c[2].ID, Votes: 3},
		},
	}))
	s.apply(r)(r.FinishSubmission(s.cc))
	s.Equal(7, r.Candidates[c[0].ID].Votes.Total())
	s.Equal(6, r.Candidates[c[1].ID].Votes.Total())
	s.Equal(3, r.Candidates[c[2].ID].Votes.Total())
}

func TestDecodeRejectsUnknownEvents(t *testing.T) {
	env := eventstore.Envelope{StreamID: "result-x", Type: "CandidateRenamed", Payload: json.RawMessage(`{}`)}
	_, err := Decode(env)
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnknownEvent)
}

func TestDecodeRestoresPayloads(t *testing.T) {
	cid := id.CandidateID(uuid.New())
	in := CandidateResultsEntered{
		VoteLines:  VoteLines{EmptyVotes: 2},
		Candidates: []CandidateVotes{{CandidateID: cid, Votes: 9}},
	}
	env, err := eventstore.NewEnvelope("result-x", AggregateType, 3, in.EventType(), in, eventstore.Metadata{}, time.Now())
	require.NoError(t, err)

	rec, err := Decode(env)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version)
	assert.Equal(t, in, rec.Event)
}

// Replaying a stream with duplicated deliveries, order of first delivery
// preserved, yields the same state as a clean replay.
func TestReplayIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := contesttest.MajorityElection(1, 2, 3, contesttest.WithBallotGroup(2))
		cc := CommandContext{Business: &f.Business, Settings: SettingsFrom(f.Contest.Settings)}
		events := randomStream(t, f, cc)

		clean := Fold(NewCountingCircleResult(f.Business.ID, f.Business.CountingCircleIDs[0]), events)

		var delivered []Recorded
		for i, e := range events {
			delivered = append(delivered, e)
			for range rapid.IntRange(0, 2).Draw(t, "redeliveries") {
				delivered = append(delivered, events[rapid.IntRange(0, i).Draw(t, "redelivered")])
			}
		}
		replayed := Fold(NewCountingCircleResult(f.Business.ID, f.Business.CountingCircleIDs[0]), delivered)

		if diff := cmp.Diff(clean, replayed); diff != "" {
			t.Fatalf("replay with duplicates diverged (-clean +replayed):\n%s", diff)
		}
	})
}

// randomStream drives a result through random commands and records every
// accepted event.
func randomStream(t *rapid.T, f contesttest.Fixture, cc CommandContext) []Recorded {
	r := NewCountingCircleResult(f.Business.ID, f.Business.CountingCircleIDs[0])
	at := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	var out []Recorded
	record := func(events []Event, err error) {
		if err != nil {
			return
		}
		for _, e := range events {
			at = at.Add(time.Second)
			rec := Recorded{Version: r.Version + 1, OccurredAt: at, Event: e}
			r.Apply(rec)
			out = append(out, rec)
		}
	}

	record(r.StartSubmission(cc))
	votes := rapid.IntRange(0, 20)
	steps := rapid.IntRange(1, 25).Draw(t, "steps")
	for range steps {
		switch rapid.IntRange(0, 9).Draw(t, "command") {
		case 0:
			accounted := votes.Draw(t, "accounted")
			record(r.EnterCountOfVoters(cc, BallotCounts{ReceivedBallots: accounted, AccountedBallots: accounted}))
		case 1:
			entry := CandidateEntry{VoteLines: VoteLines{EmptyVotes: votes.Draw(t, "empty")}}
			for _, c := range f.Business.Candidates {
				entry.Candidates = append(entry.Candidates, CandidateVotes{CandidateID: c.ID, Votes: votes.Draw(t, "votes")})
			}
			record(r.EnterCandidateResults(cc, entry))
		case 2:
			record(r.EnterBallotGroupResults(cc, []BallotGroupCount{{BallotGroupID: f.Business.BallotGroups[0].ID, Ballots: votes.Draw(t, "group")}}))
		case 3:
			record(r.FinishSubmission(cc))
		case 4:
			record(r.FlagForCorrection(cc, ""))
		case 5:
			record(r.FinishCorrection(cc, ""))
		case 6:
			record(r.AuditTentatively(cc))
		case 7:
			record(r.Publish(cc))
		case 8:
			record(r.Reset(cc))
		case 9:
			record(r.ResetToSubmissionFinished(cc))
		}
	}
	return out
}
