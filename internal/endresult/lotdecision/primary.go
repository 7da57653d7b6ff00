package lotdecision

import (
	"votum/internal/endresult/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

// Evaluate computes the end result under a hypothetical set of decisions.
type Evaluate func(decisions *models.EndResultAggregate) *models.EndResult

// ValidatePrimary checks an update of the primary lot decisions. List ties
// are validated first; candidate ties are then taken from the end result the
// proposed list decisions would produce, since a decided list seat moves the
// cutoff inside that list.
func ValidatePrimary(current *models.EndResult, agg *models.EndResultAggregate, update models.LotDecisionsUpdated, evaluate Evaluate) error {
	if err := checkEnabled(current); err != nil {
		return err
	}
	if err := checkListDecisions(tieGroups(current).Lists, update.Lists); err != nil {
		return err
	}

	hypothetical := agg.Clone()
	hypothetical.ListDecisions = make(map[id.ListID]int, len(update.Lists))
	for _, d := range update.Lists {
		hypothetical.ListDecisions[d.ListID] = d.Rank
	}
	hypothetical.CandidateDecisions = map[id.CandidateID]int{}
	groups := tieGroups(evaluate(hypothetical)).Candidates

	seen := make(map[id.CandidateID]bool, len(update.Candidates))
	for _, d := range update.Candidates {
		if seen[d.CandidateID] {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "candidate decided twice").With("candidate_id", d.CandidateID)
		}
		seen[d.CandidateID] = true
	}
	for _, d := range update.Candidates {
		if groupOf(groups, d.CandidateID) < 0 {
			return dErrors.New(dErrors.CodeValidation, "candidate is not tied at a mandate cutoff").With("candidate_id", d.CandidateID)
		}
	}
	for _, g := range groups {
		for _, m := range g.Candidates {
			if !seen[m.CandidateID] {
				return dErrors.New(dErrors.CodeRequiredLotDecisionMissing, "tied candidate has no decision").
					With("candidate_id", m.CandidateID).With("vote_count", g.VoteCount)
			}
		}
	}
	ranks := make(map[id.CandidateID]int, len(update.Candidates))
	for _, d := range update.Candidates {
		ranks[d.CandidateID] = d.Rank
	}
	for _, g := range groups {
		keys := make([]string, len(g.Candidates))
		values := make([]int, len(g.Candidates))
		for i, m := range g.Candidates {
			keys[i], values[i] = m.CandidateID.String(), ranks[m.CandidateID]
		}
		if err := checkRanks("candidate_id", keys, values, g.RankFrom, g.RankTo); err != nil {
			return err
		}
	}
	return nil
}

func checkListDecisions(groups []ListGroup, decisions []models.ListLotDecision) error {
	seen := make(map[id.ListID]bool, len(decisions))
	for _, d := range decisions {
		if seen[d.ListID] {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "list decided twice").With("list_id", d.ListID)
		}
		seen[d.ListID] = true
	}
	member := make(map[id.ListID]int)
	for gi, g := range groups {
		for _, lid := range g.Lists {
			member[lid] = gi
		}
	}
	for _, d := range decisions {
		if _, ok := member[d.ListID]; !ok {
			return dErrors.New(dErrors.CodeValidation, "list is not tied for a seat").With("list_id", d.ListID)
		}
	}
	ranks := make(map[id.ListID]int, len(decisions))
	for _, d := range decisions {
		ranks[d.ListID] = d.Rank
	}
	for _, g := range groups {
		keys := make([]string, len(g.Lists))
		values := make([]int, len(g.Lists))
		for i, lid := range g.Lists {
			if !seen[lid] {
				return dErrors.New(dErrors.CodeRequiredLotDecisionMissing, "tied list has no decision").With("list_id", lid)
			}
			keys[i], values[i] = lid.String(), ranks[lid]
		}
		if err := checkRanks("list_id", keys, values, g.RankFrom, g.RankTo); err != nil {
			return err
		}
	}
	return nil
}

func groupOf(groups []CandidateGroup, candidateID id.CandidateID) int {
	for i, g := range groups {
		if g.has(candidateID) {
			return i
		}
	}
	return -1
}
