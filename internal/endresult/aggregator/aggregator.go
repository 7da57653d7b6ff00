// Package aggregator computes end results. Compute is a pure function of the
// business configuration, the counting circle results and the lot decisions:
// the same inputs always produce the same end result.
package aggregator

import (
	contestModels "votum/internal/contest/models"
	"votum/internal/endresult/models"
	resultModels "votum/internal/result/models"
	id "votum/pkg/domain"
)

// Compute derives the end result of business. Only done counting circle
// results contribute votes; results of circles the business does not count
// in are ignored. decisions may be nil when no lot decision was recorded.
func Compute(
	business *contestModels.PoliticalBusiness,
	snapshots []*resultModels.CountingCircleResult,
	decisions *models.EndResultAggregate,
) *models.EndResult {
	if decisions == nil {
		decisions = models.NewEndResultAggregate(business.ID)
	}

	byCircle := make(map[id.CountingCircleID]*resultModels.CountingCircleResult, len(snapshots))
	for _, s := range snapshots {
		if s != nil && s.PoliticalBusinessID == business.ID {
			byCircle[s.CountingCircleID] = s
		}
	}

	er := &models.EndResult{
		PoliticalBusinessID:         business.ID,
		ContestID:                   business.ContestID,
		Type:                        business.Type,
		MandateAlgorithm:            business.MandateAlgorithm,
		TotalCountOfCountingCircles: len(business.CountingCircleIDs),
		Finalized:                   decisions.Finalized,
		DecisionsVersion:            decisions.Version,
	}

	var done []*resultModels.CountingCircleResult
	for _, circleID := range business.CountingCircleIDs {
		c := models.CircleContribution{CountingCircleID: circleID, State: resultModels.StateInitial}
		if r, ok := byCircle[circleID]; ok {
			c.State, c.Version, c.Done = r.State, r.Version, r.State.IsDone()
			if c.Done {
				done = append(done, r)
				er.Subtotal = er.Subtotal.Combine(r.Subtotal())
			}
		}
		er.Contributions = append(er.Contributions, c)
	}
	er.CountOfDoneCountingCircles = len(done)
	er.AllCountingCirclesDone = er.TotalCountOfCountingCircles > 0 &&
		er.CountOfDoneCountingCircles == er.TotalCountOfCountingCircles
	er.LotDecisionEnabled = er.AllCountingCirclesDone && !er.Finalized

	if business.IsProportional() {
		er.Proportional = proportional(business, done, decisions, er.AllCountingCirclesDone)
	} else {
		er.Majority = majority(business, done, er.Subtotal, decisions, er.AllCountingCirclesDone)
		for _, se := range business.SecondaryElections {
			er.Secondary = append(er.Secondary, secondary(business, se, done, er.Subtotal, decisions, er.AllCountingCirclesDone))
		}
	}

	er.ReadyForFinalization = er.AllCountingCirclesDone && !er.Finalized && er.OpenLotDecisions() == 0
	return er
}

// AbsoluteMajority is the vote count a candidate needs under the absolute
// majority algorithm: more than half of the accounted ballots.
func AbsoluteMajority(accountedBallots int) int {
	return accountedBallots/2 + 1
}

type tally struct {
	conventional int
	electronic   int
}

func (t tally) total() int {
	return t.conventional + t.electronic
}

func (t *tally) add(v resultModels.VoteSource) {
	t.conventional += v.ConventionalTotal()
	t.electronic += v.Electronic
}

func majority(
	business *contestModels.PoliticalBusiness,
	done []*resultModels.CountingCircleResult,
	subtotal resultModels.TallySubtotal,
	decisions *models.EndResultAggregate,
	allDone bool,
) *models.MajorityResult {
	tallies := make([]tally, len(business.Candidates))
	ids := make([]id.CandidateID, len(business.Candidates))
	for i, c := range business.Candidates {
		ids[i] = c.ID
		for _, r := range done {
			tallies[i].add(r.Candidates[c.ID].Votes)
		}
	}

	m := &models.MajorityResult{
		NumberOfMandates: business.NumberOfMandates,
		VoteLines:        subtotal.VoteLines,
	}
	threshold := 0
	if business.MandateAlgorithm == contestModels.MandateAlgorithmAbsoluteMajority {
		threshold = AbsoluteMajority(subtotal.AccountedBallots)
		m.AbsoluteMajority = threshold
	}
	m.Candidates = rankCandidates(ids, tallies, business.NumberOfMandates, threshold, decisions.CandidateDecisions, allDone)
	return m
}

func secondary(
	business *contestModels.PoliticalBusiness,
	se contestModels.SecondaryElection,
	done []*resultModels.CountingCircleResult,
	subtotal resultModels.TallySubtotal,
	decisions *models.EndResultAggregate,
	allDone bool,
) models.SecondaryMajorityResult {
	tallies := make([]tally, len(se.Candidates))
	ids := make([]id.CandidateID, len(se.Candidates))
	var lines resultModels.VoteLines
	for _, r := range done {
		s, ok := r.Secondary[se.ID]
		if !ok {
			continue
		}
		lines = lines.Combine(s.Conventional).Combine(s.Electronic)
		for i, c := range se.Candidates {
			tallies[i].add(s.Candidates[c.ID].Votes)
		}
	}
	for i, c := range se.Candidates {
		ids[i] = c.ID
	}

	s := models.SecondaryMajorityResult{
		SecondaryElectionID: se.ID,
		NumberOfMandates:    se.NumberOfMandates,
		VoteLines:           lines,
	}
	threshold := 0
	if business.MandateAlgorithm == contestModels.MandateAlgorithmAbsoluteMajority {
		threshold = AbsoluteMajority(subtotal.AccountedBallots)
		s.AbsoluteMajority = threshold
	}
	s.Candidates = rankCandidates(ids, tallies, se.NumberOfMandates, threshold, decisions.SecondaryDecisions[se.ID], allDone)
	return s
}

// rankCandidates ranks majority candidates. With a threshold, candidates
// below it are never elected and the cutoff shrinks to the number of
// candidates reaching it.
func rankCandidates(
	ids []id.CandidateID,
	tallies []tally,
	mandates, threshold int,
	decisions map[id.CandidateID]int,
	allDone bool,
) []models.CandidateEndResult {
	members := make([]member[id.CandidateID], len(ids))
	for i, cid := range ids {
		members[i] = member[id.CandidateID]{
			key:      cid,
			votes:    tallies[i].total(),
			eligible: threshold == 0 || tallies[i].total() >= threshold,
			order:    i,
		}
	}
	cutoff := min(mandates, countEligible(members))
	placements := place(members, cutoff, decisions)

	out := make([]models.CandidateEndResult, 0, len(ids))
	for _, i := range ordered(members, placements) {
		out = append(out, candidateResult(ids[i], nil, tallies[i], placements[i], threshold > 0, allDone))
	}
	return out
}

func candidateResult(
	cid id.CandidateID,
	listID *id.ListID,
	t tally,
	p placement,
	absolute, allDone bool,
) models.CandidateEndResult {
	return models.CandidateEndResult{
		CandidateID:           cid,
		ListID:                listID,
		VoteCount:             t.total(),
		ConventionalVoteCount: t.conventional,
		ElectronicVoteCount:   t.electronic,
		Rank:                  p.rank,
		State:                 candidateState(p, absolute, allDone),
		LotDecisionRequired:   p.required,
		LotDecision:           p.decided,
		LotDecisionEnabled:    allDone,
	}
}

// candidateState stays pending until every counting circle is done.
func candidateState(p placement, absolute, allDone bool) models.CandidateState {
	switch {
	case !allDone || !p.resolved:
		return models.CandidateStatePending
	case !p.eligible && absolute:
		return models.CandidateStateAbsoluteMajorityNotReached
	case p.seated:
		return models.CandidateStateElected
	default:
		return models.CandidateStateNotElected
	}
}

func proportional(
	business *contestModels.PoliticalBusiness,
	done []*resultModels.CountingCircleResult,
	decisions *models.EndResultAggregate,
	allDone bool,
) *models.ProportionalResult {
	listTallies := make([]tally, len(business.Lists))
	listVotes := make([]int, len(business.Lists))
	listMembers := make([]member[id.ListID], len(business.Lists))
	for i, l := range business.Lists {
		for _, r := range done {
			listTallies[i].add(r.Lists[l.ID].Votes)
		}
		listVotes[i] = listTallies[i].total()
		listMembers[i] = member[id.ListID]{key: l.ID, votes: listVotes[i], eligible: true, order: i}
	}

	alloc := dhondt(listVotes, business.NumberOfMandates)
	seats := alloc.seats
	tied := make(map[int]bool, len(alloc.tied))
	decided := false
	if alloc.hasTie() {
		keys := make([]id.ListID, len(alloc.tied))
		for j, i := range alloc.tied {
			tied[i] = true
			keys[j] = business.Lists[i].ID
		}
		tiedTo := alloc.tiedFrom + len(alloc.tied) - 1
		decided = validGroupDecision(keys, alloc.tiedFrom, tiedTo, decisions.ListDecisions)
		if decided {
			for _, i := range alloc.tied {
				if decisions.ListDecisions[business.Lists[i].ID] <= business.NumberOfMandates {
					seats[i]++
				}
			}
		}
	}

	// Lists are ranked by votes for display; seat ranks come from quotients.
	listPlacements := place(listMembers, 0, nil)
	p := &models.ProportionalResult{NumberOfMandates: business.NumberOfMandates}
	for _, i := range ordered(listMembers, listPlacements) {
		l := business.Lists[i]
		lr := models.ListEndResult{
			ListID:                l.ID,
			VoteCount:             listTallies[i].total(),
			ConventionalVoteCount: listTallies[i].conventional,
			ElectronicVoteCount:   listTallies[i].electronic,
			Rank:                  listPlacements[i].rank,
			NumberOfMandates:      seats[i],
			LotDecisionEnabled:    allDone,
		}
		if tied[i] {
			lr.LotDecisionRequired = true
			lr.LotDecision = decided
			lr.SeatRankFrom = alloc.tiedFrom
			lr.SeatRankTo = alloc.tiedFrom + len(alloc.tied) - 1
		}
		lr.Candidates = listCandidates(business, l.ID, done, seats[i], lr.IsOpen(), decisions.CandidateDecisions, allDone)
		p.Lists = append(p.Lists, lr)
	}
	return p
}

// listCandidates ranks the candidates of one list against the seats the
// list won. While the list itself waits for a lot decision on an extra seat,
// candidates whose outcome depends on that seat stay pending.
func listCandidates(
	business *contestModels.PoliticalBusiness,
	listID id.ListID,
	done []*resultModels.CountingCircleResult,
	seats int,
	listOpen bool,
	decisions map[id.CandidateID]int,
	allDone bool,
) []models.CandidateEndResult {
	var (
		ids     []id.CandidateID
		tallies []tally
	)
	for _, c := range business.Candidates {
		if c.ListID == nil || *c.ListID != listID {
			continue
		}
		var t tally
		for _, r := range done {
			t.add(r.Candidates[c.ID].Votes)
		}
		ids = append(ids, c.ID)
		tallies = append(tallies, t)
	}

	members := make([]member[id.CandidateID], len(ids))
	for i := range ids {
		members[i] = member[id.CandidateID]{key: ids[i], votes: tallies[i].total(), eligible: true, order: i}
	}
	placements := place(members, seats, decisions)
	if listOpen {
		withExtraSeat := place(members, seats+1, decisions)
		for i := range placements {
			lo, hi := placements[i], withExtraSeat[i]
			placements[i].resolved = lo.resolved && hi.resolved && lo.seated == hi.seated
			placements[i].required, placements[i].decided = false, false
			placements[i].rank = lo.groupFrom
		}
	}

	out := make([]models.CandidateEndResult, 0, len(ids))
	lid := listID
	for _, i := range ordered(members, placements) {
		out = append(out, candidateResult(ids[i], &lid, tallies[i], placements[i], false, allDone))
	}
	return out
}
