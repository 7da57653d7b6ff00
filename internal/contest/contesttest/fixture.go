// Package contesttest builds contest configuration for tests.
package contesttest

import (
	"fmt"

	"github.com/google/uuid"

	"votum/internal/contest/models"
	id "votum/pkg/domain"
)

// Fixture is a contest with one political business.
type Fixture struct {
	Contest  models.Contest
	Business models.PoliticalBusiness
}

// Option mutates the fixture before it is returned.
type Option func(*Fixture)

func WithState(state models.ContestState) Option {
	return func(f *Fixture) { f.Contest.State = state }
}

func WithPublishBeforeAudit() Option {
	return func(f *Fixture) { f.Contest.Settings.PublishResultsBeforeAuditedTentatively = true }
}

func WithEnforceDetailedEntry() Option {
	return func(f *Fixture) { f.Contest.Settings.EnforceDetailedEntry = true }
}

func WithAlgorithm(algo models.MandateAlgorithm) Option {
	return func(f *Fixture) { f.Business.MandateAlgorithm = algo }
}

func WithIndividualVotes() Option {
	return func(f *Fixture) { f.Business.IndividualCandidateVotesEnabled = true }
}

// WithSecondaryElection adds a secondary election with its own candidates.
func WithSecondaryElection(mandates, candidates int) Option {
	return func(f *Fixture) {
		se := models.SecondaryElection{
			ID:               id.SecondaryElectionID(uuid.New()),
			NumberOfMandates: mandates,
		}
		for i := range candidates {
			se.Candidates = append(se.Candidates, candidate(fmt.Sprintf("S%d", i+1)))
		}
		f.Business.SecondaryElections = append(f.Business.SecondaryElections, se)
	}
}

// WithBallotGroup adds a ballot group listing the first n primary candidates.
func WithBallotGroup(n int) Option {
	return func(f *Fixture) {
		g := models.BallotGroup{ID: id.BallotGroupID(uuid.New()), Description: fmt.Sprintf("group of %d", n)}
		for _, c := range f.Business.Candidates[:n] {
			g.CandidateIDs = append(g.CandidateIDs, c.ID)
		}
		f.Business.BallotGroups = append(f.Business.BallotGroups, g)
	}
}

// MajorityElection builds a relative-majority election unless an option
// changes the algorithm.
func MajorityElection(circles, mandates, candidates int, opts ...Option) Fixture {
	contestID := id.ContestID(uuid.New())
	f := Fixture{
		Contest: models.Contest{ID: contestID, State: models.ContestStateActive},
		Business: models.PoliticalBusiness{
			ID:               id.PoliticalBusinessID(uuid.New()),
			ContestID:        contestID,
			OwnerTenantID:    id.TenantID(uuid.New()),
			Type:             models.BusinessTypeMajorityElection,
			NumberOfMandates: mandates,
			MandateAlgorithm: models.MandateAlgorithmRelativeMajority,
		},
	}
	for i := range candidates {
		f.Business.Candidates = append(f.Business.Candidates, candidate(fmt.Sprintf("C%d", i+1)))
	}
	for range circles {
		f.Business.CountingCircleIDs = append(f.Business.CountingCircleIDs, id.CountingCircleID(uuid.New()))
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// ProportionalElection builds a list election with candidatesPerList
// candidates on each list.
func ProportionalElection(circles, mandates, lists, candidatesPerList int, opts ...Option) Fixture {
	contestID := id.ContestID(uuid.New())
	f := Fixture{
		Contest: models.Contest{ID: contestID, State: models.ContestStateActive},
		Business: models.PoliticalBusiness{
			ID:               id.PoliticalBusinessID(uuid.New()),
			ContestID:        contestID,
			OwnerTenantID:    id.TenantID(uuid.New()),
			Type:             models.BusinessTypeProportionalElection,
			NumberOfMandates: mandates,
			MandateAlgorithm: models.MandateAlgorithmProportional,
		},
	}
	for l := range lists {
		list := models.List{ID: id.ListID(uuid.New()), Number: fmt.Sprintf("%02d", l+1), Name: fmt.Sprintf("List %d", l+1)}
		f.Business.Lists = append(f.Business.Lists, list)
		for c := range candidatesPerList {
			cand := candidate(fmt.Sprintf("%02d.%02d", l+1, c+1))
			listID := list.ID
			cand.ListID = &listID
			f.Business.Candidates = append(f.Business.Candidates, cand)
		}
	}
	for range circles {
		f.Business.CountingCircleIDs = append(f.Business.CountingCircleIDs, id.CountingCircleID(uuid.New()))
	}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// CandidatesOfList returns the candidates on one list in configuration order.
func (f Fixture) CandidatesOfList(listID id.ListID) []models.Candidate {
	var out []models.Candidate
	for _, c := range f.Business.Candidates {
		if c.ListID != nil && *c.ListID == listID {
			out = append(out, c)
		}
	}
	return out
}

func candidate(number string) models.Candidate {
	return models.Candidate{ID: id.CandidateID(uuid.New()), Number: number, Name: "Candidate " + number}
}
