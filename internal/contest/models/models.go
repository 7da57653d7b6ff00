// Package models describes the contest configuration the tabulation core
// reads: contests with their canton policy and the political businesses
// counted in them. Configuration is owned elsewhere and read-only here.
package models

import (
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

type ContestState string

const (
	ContestStateTestingPhase ContestState = "testing_phase"
	ContestStateActive       ContestState = "active"
	ContestStatePastLocked   ContestState = "past_locked"
	ContestStateArchived     ContestState = "archived"
)

func (s ContestState) IsValid() bool {
	switch s {
	case ContestStateTestingPhase, ContestStateActive, ContestStatePastLocked, ContestStateArchived:
		return true
	}
	return false
}

// IsLocked reports whether results of the contest are frozen.
func (s ContestState) IsLocked() bool {
	return s == ContestStatePastLocked || s == ContestStateArchived
}

// CantonSettings are the policy toggles a canton applies to its contests.
type CantonSettings struct {
	PublishResultsBeforeAuditedTentatively bool `json:"publish_results_before_audited_tentatively"`
	EnforceDetailedEntry                   bool `json:"enforce_detailed_entry"`
}

type Contest struct {
	ID       id.ContestID   `json:"id"`
	State    ContestState   `json:"state" validate:"required"`
	Settings CantonSettings `json:"canton_settings"`
}

type BusinessType string

const (
	BusinessTypeMajorityElection     BusinessType = "majority_election"
	BusinessTypeProportionalElection BusinessType = "proportional_election"
)

type MandateAlgorithm string

const (
	MandateAlgorithmAbsoluteMajority MandateAlgorithm = "absolute_majority"
	MandateAlgorithmRelativeMajority MandateAlgorithm = "relative_majority"
	MandateAlgorithmProportional     MandateAlgorithm = "proportional"
)

type Candidate struct {
	ID     id.CandidateID `json:"id"`
	Number string         `json:"number"`
	Name   string         `json:"name"`
	// PrimaryCandidateID links a secondary election candidate to the same
	// person on the primary election, if any.
	PrimaryCandidateID *id.CandidateID `json:"primary_candidate_id,omitempty"`
	// ListID is set for proportional election candidates.
	ListID *id.ListID `json:"list_id,omitempty"`
}

type List struct {
	ID     id.ListID `json:"id"`
	Number string    `json:"number"`
	Name   string    `json:"name"`
}

// BallotGroup is a pre-printed ballot. Every ballot counted for the group
// gives one vote to each listed candidate.
type BallotGroup struct {
	ID           id.BallotGroupID `json:"id"`
	Description  string           `json:"description"`
	CandidateIDs []id.CandidateID `json:"candidate_ids"`
}

type SecondaryElection struct {
	ID               id.SecondaryElectionID `json:"id"`
	NumberOfMandates int                    `json:"number_of_mandates" validate:"gte=1"`
	Candidates       []Candidate            `json:"candidates"`
}

// PoliticalBusiness is an election counted across its counting circles.
type PoliticalBusiness struct {
	ID                              id.PoliticalBusinessID `json:"id"`
	ContestID                       id.ContestID           `json:"contest_id"`
	OwnerTenantID                   id.TenantID            `json:"owner_tenant_id"`
	Type                            BusinessType           `json:"type" validate:"required"`
	NumberOfMandates                int                    `json:"number_of_mandates" validate:"gte=1"`
	MandateAlgorithm                MandateAlgorithm       `json:"mandate_algorithm" validate:"required"`
	IndividualCandidateVotesEnabled bool                   `json:"individual_candidate_votes_enabled"`
	Candidates                      []Candidate            `json:"candidates" validate:"dive"`
	Lists                           []List                 `json:"lists,omitempty"`
	BallotGroups                    []BallotGroup          `json:"ballot_groups,omitempty"`
	SecondaryElections              []SecondaryElection    `json:"secondary_elections,omitempty" validate:"dive"`
	CountingCircleIDs               []id.CountingCircleID  `json:"counting_circle_ids" validate:"min=1"`
}

// IsOwner reports whether tenant owns the business. Owners finalize without
// second-factor verification.
func (b *PoliticalBusiness) IsOwner(tenant id.TenantID) bool {
	return !tenant.IsNil() && b.OwnerTenantID == tenant
}

func (b *PoliticalBusiness) IsProportional() bool {
	return b.Type == BusinessTypeProportionalElection
}

func (b *PoliticalBusiness) HasCandidate(candidateID id.CandidateID) bool {
	for _, c := range b.Candidates {
		if c.ID == candidateID {
			return true
		}
	}
	return false
}

func (b *PoliticalBusiness) HasList(listID id.ListID) bool {
	for _, l := range b.Lists {
		if l.ID == listID {
			return true
		}
	}
	return false
}

func (b *PoliticalBusiness) BallotGroup(groupID id.BallotGroupID) (BallotGroup, bool) {
	for _, g := range b.BallotGroups {
		if g.ID == groupID {
			return g, true
		}
	}
	return BallotGroup{}, false
}

func (b *PoliticalBusiness) SecondaryElection(secondaryID id.SecondaryElectionID) (SecondaryElection, bool) {
	for _, s := range b.SecondaryElections {
		if s.ID == secondaryID {
			return s, true
		}
	}
	return SecondaryElection{}, false
}

func (b *PoliticalBusiness) HasCountingCircle(circleID id.CountingCircleID) bool {
	for _, c := range b.CountingCircleIDs {
		if c == circleID {
			return true
		}
	}
	return false
}

// Check verifies cross-references a struct tag cannot express.
func (b *PoliticalBusiness) Check() error {
	if b.IsProportional() != (b.MandateAlgorithm == MandateAlgorithmProportional) {
		return dErrors.New(dErrors.CodeValidation, "proportional elections require the proportional mandate algorithm")
	}
	seen := make(map[id.CandidateID]bool, len(b.Candidates))
	for _, c := range b.Candidates {
		if seen[c.ID] {
			return dErrors.New(dErrors.CodeValidation, "duplicate candidate").With("candidate_id", c.ID)
		}
		seen[c.ID] = true
		if b.IsProportional() && (c.ListID == nil || !b.HasList(*c.ListID)) {
			return dErrors.New(dErrors.CodeValidation, "proportional candidate must reference a list").With("candidate_id", c.ID)
		}
	}
	for _, g := range b.BallotGroups {
		for _, cid := range g.CandidateIDs {
			if !seen[cid] {
				return dErrors.New(dErrors.CodeValidation, "ballot group references unknown candidate").
					With("ballot_group_id", g.ID).With("candidate_id", cid)
			}
		}
	}
	for _, s := range b.SecondaryElections {
		for _, c := range s.Candidates {
			if c.PrimaryCandidateID != nil && !seen[*c.PrimaryCandidateID] {
				return dErrors.New(dErrors.CodeValidation, "secondary candidate references unknown primary candidate").
					With("candidate_id", c.ID)
			}
		}
	}
	return nil
}
