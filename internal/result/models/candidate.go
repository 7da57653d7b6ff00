package models

import id "votum/pkg/domain"

// VoteSource splits a vote count by where the votes came from.
type VoteSource struct {
	// Conventional is entered directly as a final result.
	Conventional int `json:"conventional"`
	// BallotGroup is derived from ballot group counts.
	BallotGroup int `json:"ballot_group"`
	// Bundle is derived from reviewed ballot bundles.
	Bundle int `json:"bundle"`
	// Electronic is imported from the e-voting system.
	Electronic int `json:"electronic"`
}

// ConventionalTotal is every vote counted on paper.
func (v VoteSource) ConventionalTotal() int {
	return v.Conventional + v.BallotGroup + v.Bundle
}

func (v VoteSource) Total() int {
	return v.ConventionalTotal() + v.Electronic
}

// CandidateResult is one candidate's votes within a counting circle result.
type CandidateResult struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	Votes       VoteSource     `json:"votes"`
}

// ListResult is one list's votes within a proportional election result.
type ListResult struct {
	ListID id.ListID  `json:"list_id"`
	Votes  VoteSource `json:"votes"`
}

// SecondaryResult holds the vote lines and candidates of one secondary
// majority election. Ballot counts are shared with the primary election.
type SecondaryResult struct {
	SecondaryElectionID id.SecondaryElectionID             `json:"secondary_election_id"`
	Conventional        VoteLines                          `json:"conventional"`
	Electronic          VoteLines                          `json:"electronic"`
	CandidatesEntered   bool                               `json:"candidates_entered"`
	Candidates          map[id.CandidateID]CandidateResult `json:"candidates"`
}

func newSecondaryResult(secondaryID id.SecondaryElectionID) *SecondaryResult {
	return &SecondaryResult{
		SecondaryElectionID: secondaryID,
		Candidates:          make(map[id.CandidateID]CandidateResult),
	}
}

// CandidateVotes sums the votes of every candidate.
func (s *SecondaryResult) CandidateVotes() int {
	total := 0
	for _, c := range s.Candidates {
		total += c.Votes.Total()
	}
	return total
}
