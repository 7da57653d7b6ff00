// Package lotdecision lists the ties an end result needs decided by lot and
// validates proposed decisions against them.
package lotdecision

import (
	"slices"

	"votum/internal/endresult/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

// CandidateGroup is a set of candidates tied at a mandate cutoff. A decision
// gives every member a distinct rank within [RankFrom, RankTo].
type CandidateGroup struct {
	SecondaryElectionID *id.SecondaryElectionID `json:"secondary_election_id,omitempty"`
	ListID              *id.ListID              `json:"list_id,omitempty"`
	VoteCount           int                     `json:"vote_count"`
	RankFrom            int                     `json:"rank_from"`
	RankTo              int                     `json:"rank_to"`
	Candidates          []GroupMember           `json:"candidates"`
}

type GroupMember struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	// Rank is the currently decided rank, zero while undecided.
	Rank int `json:"rank,omitempty"`
}

// ListGroup is a set of lists tied for the last seats of a proportional
// election.
type ListGroup struct {
	VoteCount int         `json:"vote_count"`
	RankFrom  int         `json:"rank_from"`
	RankTo    int         `json:"rank_to"`
	Lists     []id.ListID `json:"lists"`
	decided   bool
}

// Available are the tie groups still waiting for a lot decision. Decided
// lists the resolved groups with their ranks; a primary update replaces
// every primary decision, so it must repeat them.
type Available struct {
	Candidates []CandidateGroup `json:"candidates"`
	Lists      []ListGroup      `json:"lists,omitempty"`
	Secondary  []CandidateGroup `json:"secondary,omitempty"`
	Decided    Decided          `json:"decided"`
}

type Decided struct {
	Candidates []CandidateGroup `json:"candidates,omitempty"`
	Lists      []ListGroup      `json:"lists,omitempty"`
	Secondary  []CandidateGroup `json:"secondary,omitempty"`
}

// AvailableDecisions lists the open and decided tie groups of er. It fails
// with lot_decisions_not_allowed unless lot decisions are enabled.
func AvailableDecisions(er *models.EndResult) (Available, error) {
	if err := checkEnabled(er); err != nil {
		return Available{}, err
	}
	all := tieGroups(er)
	var a Available
	a.Candidates, a.Decided.Candidates = splitCandidates(all.Candidates)
	a.Secondary, a.Decided.Secondary = splitCandidates(all.Secondary)
	for _, g := range all.Lists {
		if g.decided {
			a.Decided.Lists = append(a.Decided.Lists, g)
		} else {
			a.Lists = append(a.Lists, g)
		}
	}
	return a, nil
}

func splitCandidates(groups []CandidateGroup) (open, decided []CandidateGroup) {
	for _, g := range groups {
		if g.decided() {
			decided = append(decided, g)
		} else {
			open = append(open, g)
		}
	}
	return open, decided
}

// tieGroups collects every tie group of er, decided or not.
func tieGroups(er *models.EndResult) Available {
	var a Available
	if er.Majority != nil {
		a.Candidates = candidateGroups(er.Majority.Candidates, nil, nil)
	}
	for _, s := range er.Secondary {
		sid := s.SecondaryElectionID
		a.Secondary = append(a.Secondary, candidateGroups(s.Candidates, &sid, nil)...)
	}
	if er.Proportional != nil {
		tied := ListGroup{decided: true}
		for _, l := range er.Proportional.Lists {
			lid := l.ListID
			a.Candidates = append(a.Candidates, candidateGroups(l.Candidates, nil, &lid)...)
			if l.LotDecisionRequired {
				tied.RankFrom, tied.RankTo = l.SeatRankFrom, l.SeatRankTo
				tied.VoteCount = l.VoteCount
				tied.Lists = append(tied.Lists, l.ListID)
				tied.decided = tied.decided && l.LotDecision
			}
		}
		if len(tied.Lists) > 0 {
			a.Lists = []ListGroup{tied}
		}
	}
	return a
}

// candidateGroups groups required candidates by vote count. Candidates come
// in rank order, so members of one group are adjacent.
func candidateGroups(candidates []models.CandidateEndResult, sid *id.SecondaryElectionID, lid *id.ListID) []CandidateGroup {
	var out []CandidateGroup
	for _, c := range candidates {
		if !c.LotDecisionRequired {
			continue
		}
		member := GroupMember{CandidateID: c.CandidateID}
		if c.LotDecision {
			member.Rank = c.Rank
		}
		if n := len(out); n > 0 && out[n-1].VoteCount == c.VoteCount {
			g := &out[n-1]
			g.Candidates = append(g.Candidates, member)
			g.RankFrom = min(g.RankFrom, c.Rank)
			g.RankTo = g.RankFrom + len(g.Candidates) - 1
			continue
		}
		out = append(out, CandidateGroup{
			SecondaryElectionID: sid,
			ListID:              lid,
			VoteCount:           c.VoteCount,
			RankFrom:            c.Rank,
			RankTo:              c.Rank,
			Candidates:          []GroupMember{member},
		})
	}
	return out
}

func (g CandidateGroup) decided() bool {
	for _, m := range g.Candidates {
		if m.Rank == 0 {
			return false
		}
	}
	return true
}

func (g CandidateGroup) has(candidateID id.CandidateID) bool {
	return slices.ContainsFunc(g.Candidates, func(m GroupMember) bool { return m.CandidateID == candidateID })
}

// checkEnabled rejects decisions before every circle is done or once the
// end result is finalized.
func checkEnabled(er *models.EndResult) error {
	if er.Finalized {
		return dErrors.New(dErrors.CodeLotDecisionsNotAllowed, "end result is finalized")
	}
	if !er.LotDecisionEnabled {
		return dErrors.New(dErrors.CodeLotDecisionsNotAllowed, "not every counting circle is done").
			With("done", er.CountOfDoneCountingCircles).
			With("total", er.TotalCountOfCountingCircles)
	}
	return nil
}

// checkRanks verifies that ranks is a set of distinct values within
// [from, to]. Keys identify the decision in errors.
func checkRanks(key string, ids []string, ranks []int, from, to int) error {
	used := make(map[int]bool, len(ranks))
	for i, rank := range ranks {
		if rank < from || rank > to {
			return dErrors.Newf(dErrors.CodeInvalidRank, "rank outside %d..%d", from, to).
				With(key, ids[i]).With("rank", rank)
		}
		if used[rank] {
			return dErrors.New(dErrors.CodeInvalidRank, "rank assigned twice").
				With(key, ids[i]).With("rank", rank)
		}
		used[rank] = true
	}
	return nil
}
