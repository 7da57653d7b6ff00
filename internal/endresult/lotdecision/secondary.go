package lotdecision

import (
	"votum/internal/endresult/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

type secondaryKey struct {
	secondary id.SecondaryElectionID
	candidate id.CandidateID
}

// ValidateSecondary checks lot decisions for secondary elections. A tie
// group is resolved as a whole or not at all, and secondary ties are only
// decided once no primary tie is open.
func ValidateSecondary(current *models.EndResult, update models.SecondaryLotDecisionsUpdated) error {
	if err := checkEnabled(current); err != nil {
		return err
	}

	seen := make(map[secondaryKey]int, len(update.Decisions))
	for _, d := range update.Decisions {
		k := secondaryKey{d.SecondaryElectionID, d.CandidateID}
		if _, dup := seen[k]; dup {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "candidate decided twice").
				With("secondary_election_id", d.SecondaryElectionID).With("candidate_id", d.CandidateID)
		}
		seen[k] = d.Rank
	}

	groups := tieGroups(current).Secondary
	touched := make(map[int]bool)
	for _, d := range update.Decisions {
		gi := -1
		for i, g := range groups {
			if *g.SecondaryElectionID == d.SecondaryElectionID && g.has(d.CandidateID) {
				gi = i
				break
			}
		}
		if gi < 0 {
			return dErrors.New(dErrors.CodeValidation, "candidate is not tied at a mandate cutoff").
				With("secondary_election_id", d.SecondaryElectionID).With("candidate_id", d.CandidateID)
		}
		touched[gi] = true
	}

	for gi, g := range groups {
		if !touched[gi] {
			continue
		}
		for _, m := range g.Candidates {
			if _, ok := seen[secondaryKey{*g.SecondaryElectionID, m.CandidateID}]; !ok {
				return dErrors.New(dErrors.CodePartialGroupResolution, "every candidate of a tie group must be decided together").
					With("secondary_election_id", *g.SecondaryElectionID).
					With("candidate_id", m.CandidateID).
					With("vote_count", g.VoteCount)
			}
		}
	}

	for gi, g := range groups {
		if !touched[gi] {
			continue
		}
		keys := make([]string, len(g.Candidates))
		values := make([]int, len(g.Candidates))
		for i, m := range g.Candidates {
			keys[i] = m.CandidateID.String()
			values[i] = seen[secondaryKey{*g.SecondaryElectionID, m.CandidateID}]
		}
		if err := checkRanks("candidate_id", keys, values, g.RankFrom, g.RankTo); err != nil {
			return err
		}
	}

	if current.Majority != nil && current.Majority.OpenLotDecisions() > 0 {
		return dErrors.New(dErrors.CodePrimaryLotDecisionsPending, "decide the primary election ties first").
			With("open", current.Majority.OpenLotDecisions())
	}
	return nil
}
