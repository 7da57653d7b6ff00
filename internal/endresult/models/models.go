// Package models holds the end result of a political business: a projection
// recomputed from the done counting circle results and the lot decisions.
package models

import (
	contestModels "votum/internal/contest/models"
	resultModels "votum/internal/result/models"
	id "votum/pkg/domain"
)

type CandidateState string

const (
	CandidateStatePending                    CandidateState = "pending"
	CandidateStateElected                    CandidateState = "elected"
	CandidateStateNotElected                 CandidateState = "not_elected"
	CandidateStateAbsoluteMajorityNotReached CandidateState = "absolute_majority_not_reached"
)

// CandidateEndResult is one candidate's aggregated outcome.
type CandidateEndResult struct {
	CandidateID           id.CandidateID `json:"candidate_id"`
	ListID                *id.ListID     `json:"list_id,omitempty"`
	VoteCount             int            `json:"vote_count"`
	ConventionalVoteCount int            `json:"conventional_vote_count"`
	ElectronicVoteCount   int            `json:"electronic_vote_count"`
	Rank                  int            `json:"rank"`
	State                 CandidateState `json:"state"`
	// LotDecisionRequired marks members of a tie group that straddles the
	// mandate cutoff. It stays set after the tie was decided.
	LotDecisionRequired bool `json:"lot_decision_required"`
	// LotDecision is set once a valid drawn rank applies.
	LotDecision        bool `json:"lot_decision"`
	LotDecisionEnabled bool `json:"lot_decision_enabled"`
}

// IsOpen reports whether the candidate waits for a lot decision.
func (c CandidateEndResult) IsOpen() bool {
	return c.LotDecisionRequired && !c.LotDecision
}

// ListEndResult is one list's outcome in a proportional election.
type ListEndResult struct {
	ListID                id.ListID `json:"list_id"`
	VoteCount             int       `json:"vote_count"`
	ConventionalVoteCount int       `json:"conventional_vote_count"`
	ElectronicVoteCount   int       `json:"electronic_vote_count"`
	// Rank orders lists by votes for display.
	Rank int `json:"rank"`
	// NumberOfMandates are the seats won, excluding an undecided tied seat.
	NumberOfMandates int `json:"number_of_mandates"`
	// SeatRankFrom and SeatRankTo bound the ranks a lot decision may assign
	// when the list ties for the last seat.
	SeatRankFrom        int                  `json:"seat_rank_from,omitempty"`
	SeatRankTo          int                  `json:"seat_rank_to,omitempty"`
	LotDecisionRequired bool                 `json:"lot_decision_required"`
	LotDecision         bool                 `json:"lot_decision"`
	LotDecisionEnabled  bool                 `json:"lot_decision_enabled"`
	Candidates          []CandidateEndResult `json:"candidates"`
}

func (l ListEndResult) IsOpen() bool {
	return l.LotDecisionRequired && !l.LotDecision
}

// ElectionResult is the closed set of election outcomes an end result is
// made of: the primary majority election, its secondary elections, or a
// proportional election.
type ElectionResult interface {
	Mandates() int
	CandidateResults() []CandidateEndResult
	// OpenLotDecisions counts candidates and lists waiting for a lot decision.
	OpenLotDecisions() int
	isElectionResult()
}

type MajorityResult struct {
	NumberOfMandates int                    `json:"number_of_mandates"`
	AbsoluteMajority int                    `json:"absolute_majority,omitempty"`
	VoteLines        resultModels.VoteLines `json:"vote_lines"`
	Candidates       []CandidateEndResult   `json:"candidates"`
}

type SecondaryMajorityResult struct {
	SecondaryElectionID id.SecondaryElectionID `json:"secondary_election_id"`
	NumberOfMandates    int                    `json:"number_of_mandates"`
	AbsoluteMajority    int                    `json:"absolute_majority,omitempty"`
	VoteLines           resultModels.VoteLines `json:"vote_lines"`
	Candidates          []CandidateEndResult   `json:"candidates"`
}

type ProportionalResult struct {
	NumberOfMandates int             `json:"number_of_mandates"`
	Lists            []ListEndResult `json:"lists"`
}

func (m *MajorityResult) Mandates() int                          { return m.NumberOfMandates }
func (m *MajorityResult) CandidateResults() []CandidateEndResult { return m.Candidates }
func (m *MajorityResult) OpenLotDecisions() int                  { return countOpen(m.Candidates) }
func (*MajorityResult) isElectionResult()                        {}

func (s *SecondaryMajorityResult) Mandates() int { return s.NumberOfMandates }
func (s *SecondaryMajorityResult) CandidateResults() []CandidateEndResult {
	return s.Candidates
}
func (s *SecondaryMajorityResult) OpenLotDecisions() int { return countOpen(s.Candidates) }
func (*SecondaryMajorityResult) isElectionResult()       {}

func (p *ProportionalResult) Mandates() int { return p.NumberOfMandates }

// CandidateResults flattens the candidates of every list in list order.
func (p *ProportionalResult) CandidateResults() []CandidateEndResult {
	var out []CandidateEndResult
	for _, l := range p.Lists {
		out = append(out, l.Candidates...)
	}
	return out
}

func (p *ProportionalResult) OpenLotDecisions() int {
	open := 0
	for _, l := range p.Lists {
		if l.IsOpen() {
			open++
		}
		open += countOpen(l.Candidates)
	}
	return open
}

func (*ProportionalResult) isElectionResult() {}

func countOpen(candidates []CandidateEndResult) int {
	open := 0
	for _, c := range candidates {
		if c.IsOpen() {
			open++
		}
	}
	return open
}

// CircleContribution records the state of one counting circle result the
// end result was computed from.
type CircleContribution struct {
	CountingCircleID id.CountingCircleID `json:"counting_circle_id"`
	State            resultModels.State  `json:"state"`
	Done             bool                `json:"done"`
	Version          int64               `json:"version"`
}

// EndResult is the aggregated outcome of one political business. It is
// never mutated independently; every change is a recompute.
type EndResult struct {
	PoliticalBusinessID         id.PoliticalBusinessID         `json:"political_business_id"`
	ContestID                   id.ContestID                   `json:"contest_id"`
	Type                        contestModels.BusinessType     `json:"type"`
	MandateAlgorithm            contestModels.MandateAlgorithm `json:"mandate_algorithm"`
	TotalCountOfCountingCircles int                            `json:"total_count_of_counting_circles"`
	CountOfDoneCountingCircles  int                            `json:"count_of_done_counting_circles"`
	AllCountingCirclesDone      bool                           `json:"all_counting_circles_done"`
	Finalized                   bool                           `json:"finalized"`
	LotDecisionEnabled          bool                           `json:"lot_decision_enabled"`
	// ReadyForFinalization reports that nothing blocks a finalization. It
	// never finalizes by itself.
	ReadyForFinalization bool                       `json:"ready_for_finalization"`
	Subtotal             resultModels.TallySubtotal `json:"subtotal"`

	Majority     *MajorityResult           `json:"majority,omitempty"`
	Secondary    []SecondaryMajorityResult `json:"secondary,omitempty"`
	Proportional *ProportionalResult       `json:"proportional,omitempty"`

	Contributions []CircleContribution `json:"contributions"`
	// DecisionsVersion is the version of the lot decision stream folded in.
	DecisionsVersion int64 `json:"decisions_version"`
}

// Elections returns the election outcomes in a fixed order: primary, then
// secondary elections in configuration order.
func (e *EndResult) Elections() []ElectionResult {
	var out []ElectionResult
	if e.Majority != nil {
		out = append(out, e.Majority)
	}
	for i := range e.Secondary {
		out = append(out, &e.Secondary[i])
	}
	if e.Proportional != nil {
		out = append(out, e.Proportional)
	}
	return out
}

// OpenLotDecisions counts unresolved lot decisions across every election.
func (e *EndResult) OpenLotDecisions() int {
	open := 0
	for _, el := range e.Elections() {
		open += el.OpenLotDecisions()
	}
	return open
}

// IsPartial reports whether not every counting circle is done yet; partial
// end results must not be exported as authoritative.
func (e *EndResult) IsPartial() bool {
	return !e.AllCountingCirclesDone
}
