package models

import (
	"time"

	id "votum/pkg/domain"
)

// CountingCircleResult is the event-sourced submission of one counting
// circle for one political business. It is rebuilt by folding its stream.
type CountingCircleResult struct {
	ID                  id.ResultID            `json:"id"`
	PoliticalBusinessID id.PoliticalBusinessID `json:"political_business_id"`
	CountingCircleID    id.CountingCircleID    `json:"counting_circle_id"`
	State               State                  `json:"state"`
	Entry               EntryDefinition        `json:"entry"`

	// Ballots are the entered count of voters; vote sources never add ballots.
	Ballots BallotCounts `json:"ballots"`
	// EnteredVoteLines are the vote lines entered with the final results.
	EnteredVoteLines VoteLines `json:"entered_vote_lines"`
	// BallotGroupEmptyVotes are unused lines on counted ballot group ballots.
	BallotGroupEmptyVotes int `json:"ballot_group_empty_votes"`
	// BundleVoteLines sum the vote lines of reviewed bundles.
	BundleVoteLines VoteLines     `json:"bundle_vote_lines"`
	Electronic      TallySubtotal `json:"electronic"`

	CandidatesEntered  bool                                        `json:"candidates_entered"`
	ElectronicImported bool                                        `json:"electronic_imported"`
	Candidates         map[id.CandidateID]CandidateResult          `json:"candidates"`
	Lists              map[id.ListID]ListResult                    `json:"lists,omitempty"`
	Secondary          map[id.SecondaryElectionID]*SecondaryResult `json:"secondary,omitempty"`
	BallotGroups       map[id.BallotGroupID]int                    `json:"ballot_groups,omitempty"`
	Bundles            map[id.BallotBundleID]*BallotBundle         `json:"bundles,omitempty"`

	Published            bool       `json:"published"`
	SubmissionDoneAt     *time.Time `json:"submission_done_at,omitempty"`
	ReadyForCorrectionAt *time.Time `json:"ready_for_correction_at,omitempty"`
	AuditedTentativelyAt *time.Time `json:"audited_tentatively_at,omitempty"`
	PlausibilisedAt      *time.Time `json:"plausibilised_at,omitempty"`

	Version int64 `json:"version"`
}

// NewCountingCircleResult returns the empty result a stream is folded into.
func NewCountingCircleResult(businessID id.PoliticalBusinessID, circleID id.CountingCircleID) *CountingCircleResult {
	return &CountingCircleResult{
		ID:                  id.NewResultID(businessID, circleID),
		PoliticalBusinessID: businessID,
		CountingCircleID:    circleID,
		State:               StateInitial,
		Entry:               EntryDefinition{Type: EntryTypeFinalResults},
		Candidates:          make(map[id.CandidateID]CandidateResult),
		Lists:               make(map[id.ListID]ListResult),
		Secondary:           make(map[id.SecondaryElectionID]*SecondaryResult),
		BallotGroups:        make(map[id.BallotGroupID]int),
		Bundles:             make(map[id.BallotBundleID]*BallotBundle),
	}
}

// Fold applies recorded events in order and returns the result.
func Fold(r *CountingCircleResult, events []Recorded) *CountingCircleResult {
	for _, e := range events {
		r.Apply(e)
	}
	return r
}

// Apply folds one recorded event into the result. Events at or below the
// current version were already applied and are skipped, which makes
// at-least-once delivery safe. It reports whether the event was applied.
func (r *CountingCircleResult) Apply(rec Recorded) bool {
	if rec.Version <= r.Version {
		return false
	}
	at := rec.OccurredAt

	switch e := rec.Event.(type) {
	case SubmissionStarted:
		r.State = StateSubmissionOngoing
	case EntryDefined:
		r.Entry = e.Definition
	case CountOfVotersEntered:
		r.Ballots = e.Ballots
	case CandidateResultsEntered:
		r.applyCandidateEntry(e)
	case BallotGroupResultsEntered:
		r.applyBallotGroups(e)
	case ElectronicResultsImported:
		r.applyElectronic(e)
	case BallotBundleCreated:
		r.Bundles[e.BundleID] = &BallotBundle{ID: e.BundleID, Number: e.Number, State: BundleStateInProcess, CreatedBy: e.CreatedBy}
	case BallotBundleSubmitted:
		if b, ok := r.Bundles[e.BundleID]; ok {
			b.State = BundleStateReadyForReview
			b.Content = e.Content
		}
	case BallotBundleReviewed:
		if b, ok := r.Bundles[e.BundleID]; ok {
			b.State = BundleStateReviewed
			r.recalculateBundleVotes()
		}
	case BallotBundleRejected:
		if b, ok := r.Bundles[e.BundleID]; ok {
			b.State = BundleStateInCorrection
		}
	case BallotBundleDeleted:
		if b, ok := r.Bundles[e.BundleID]; ok {
			b.State = BundleStateDeleted
			r.recalculateBundleVotes()
		}
	case SubmissionFinished:
		r.State = StateSubmissionDone
		r.SubmissionDoneAt = &at
		r.ReadyForCorrectionAt = nil
	case FlaggedForCorrection:
		r.State = StateReadyForCorrection
		r.ReadyForCorrectionAt = &at
		r.SubmissionDoneAt = nil
	case CorrectionFinished:
		r.State = StateCorrectionDone
		r.SubmissionDoneAt = &at
		r.ReadyForCorrectionAt = nil
	case AuditedTentatively:
		r.State = StateAuditedTentatively
		r.AuditedTentativelyAt = &at
	case Plausibilised:
		r.State = StatePlausibilised
		r.PlausibilisedAt = &at
	case ResettedToAuditedTentatively:
		r.State = StateAuditedTentatively
		r.PlausibilisedAt = nil
	case ResettedToSubmissionFinished:
		r.State = StateSubmissionDone
		r.AuditedTentativelyAt = nil
		r.PlausibilisedAt = nil
	case Resetted:
		r.reset()
	case Published:
		r.Published = true
	case Unpublished:
		r.Published = false
	}

	r.Version = rec.Version
	return true
}

func (r *CountingCircleResult) applyCandidateEntry(e CandidateResultsEntered) {
	r.CandidatesEntered = true
	r.EnteredVoteLines = e.VoteLines
	for cid, c := range r.Candidates {
		c.Votes.Conventional = 0
		r.Candidates[cid] = c
	}
	for _, cv := range e.Candidates {
		c := r.candidate(cv.CandidateID)
		c.Votes.Conventional = cv.Votes
		r.Candidates[cv.CandidateID] = c
	}
	for lid, l := range r.Lists {
		l.Votes.Conventional = 0
		r.Lists[lid] = l
	}
	for _, lv := range e.Lists {
		l := r.list(lv.ListID)
		l.Votes.Conventional = lv.Votes
		r.Lists[lv.ListID] = l
	}
	for _, se := range e.Secondary {
		s := r.secondary(se.SecondaryElectionID)
		s.CandidatesEntered = true
		s.Conventional = se.VoteLines
		for cid, c := range s.Candidates {
			c.Votes.Conventional = 0
			s.Candidates[cid] = c
		}
		for _, cv := range se.Candidates {
			c := s.Candidates[cv.CandidateID]
			c.CandidateID = cv.CandidateID
			c.Votes.Conventional = cv.Votes
			s.Candidates[cv.CandidateID] = c
		}
	}
}

func (r *CountingCircleResult) applyBallotGroups(e BallotGroupResultsEntered) {
	r.BallotGroups = make(map[id.BallotGroupID]int, len(e.Groups))
	for _, g := range e.Groups {
		r.BallotGroups[g.BallotGroupID] = g.Ballots
	}
	r.BallotGroupEmptyVotes = e.EmptyVotes
	for cid, c := range r.Candidates {
		c.Votes.BallotGroup = 0
		r.Candidates[cid] = c
	}
	for _, cv := range e.Candidates {
		c := r.candidate(cv.CandidateID)
		c.Votes.BallotGroup = cv.Votes
		r.Candidates[cv.CandidateID] = c
	}
}

func (r *CountingCircleResult) applyElectronic(e ElectronicResultsImported) {
	r.ElectronicImported = true
	r.Electronic = e.Subtotal
	for cid, c := range r.Candidates {
		c.Votes.Electronic = 0
		r.Candidates[cid] = c
	}
	for _, cv := range e.Candidates {
		c := r.candidate(cv.CandidateID)
		c.Votes.Electronic = cv.Votes
		r.Candidates[cv.CandidateID] = c
	}
	for lid, l := range r.Lists {
		l.Votes.Electronic = 0
		r.Lists[lid] = l
	}
	for _, lv := range e.Lists {
		l := r.list(lv.ListID)
		l.Votes.Electronic = lv.Votes
		r.Lists[lv.ListID] = l
	}
	for _, s := range r.Secondary {
		s.Electronic = VoteLines{}
		for cid, c := range s.Candidates {
			c.Votes.Electronic = 0
			s.Candidates[cid] = c
		}
	}
	for _, se := range e.Secondary {
		s := r.secondary(se.SecondaryElectionID)
		s.Electronic = se.VoteLines
		for _, cv := range se.Candidates {
			c := s.Candidates[cv.CandidateID]
			c.CandidateID = cv.CandidateID
			c.Votes.Electronic = cv.Votes
			s.Candidates[cv.CandidateID] = c
		}
	}
}

// recalculateBundleVotes re-derives the bundle vote source from every
// reviewed bundle.
func (r *CountingCircleResult) recalculateBundleVotes() {
	for cid, c := range r.Candidates {
		c.Votes.Bundle = 0
		r.Candidates[cid] = c
	}
	for lid, l := range r.Lists {
		l.Votes.Bundle = 0
		r.Lists[lid] = l
	}
	r.BundleVoteLines = VoteLines{}
	for _, b := range r.Bundles {
		if b.State != BundleStateReviewed {
			continue
		}
		r.BundleVoteLines = r.BundleVoteLines.Combine(b.Content.VoteLines)
		for _, cv := range b.Content.Candidates {
			c := r.candidate(cv.CandidateID)
			c.Votes.Bundle += cv.Votes
			r.Candidates[cv.CandidateID] = c
		}
		for _, lv := range b.Content.Lists {
			l := r.list(lv.ListID)
			l.Votes.Bundle += lv.Votes
			r.Lists[lv.ListID] = l
		}
	}
}

// reset drops every conventional count and bundle. The electronic import and
// the entry definition are kept; they are not captured by the circle.
func (r *CountingCircleResult) reset() {
	r.State = StateSubmissionOngoing
	r.Ballots = BallotCounts{}
	r.EnteredVoteLines = VoteLines{}
	r.BallotGroupEmptyVotes = 0
	r.BundleVoteLines = VoteLines{}
	r.CandidatesEntered = false
	r.BallotGroups = make(map[id.BallotGroupID]int)
	r.Bundles = make(map[id.BallotBundleID]*BallotBundle)
	for cid, c := range r.Candidates {
		c.Votes = VoteSource{Electronic: c.Votes.Electronic}
		r.Candidates[cid] = c
	}
	for lid, l := range r.Lists {
		l.Votes = VoteSource{Electronic: l.Votes.Electronic}
		r.Lists[lid] = l
	}
	for _, s := range r.Secondary {
		s.CandidatesEntered = false
		s.Conventional = VoteLines{}
		for cid, c := range s.Candidates {
			c.Votes = VoteSource{Electronic: c.Votes.Electronic}
			s.Candidates[cid] = c
		}
	}
	r.Published = false
	r.SubmissionDoneAt = nil
	r.ReadyForCorrectionAt = nil
	r.AuditedTentativelyAt = nil
	r.PlausibilisedAt = nil
}

func (r *CountingCircleResult) candidate(cid id.CandidateID) CandidateResult {
	c, ok := r.Candidates[cid]
	if !ok {
		c.CandidateID = cid
	}
	return c
}

func (r *CountingCircleResult) list(lid id.ListID) ListResult {
	l, ok := r.Lists[lid]
	if !ok {
		l.ListID = lid
	}
	return l
}

func (r *CountingCircleResult) secondary(sid id.SecondaryElectionID) *SecondaryResult {
	s, ok := r.Secondary[sid]
	if !ok {
		s = newSecondaryResult(sid)
		r.Secondary[sid] = s
	}
	return s
}

// ConventionalSubtotal is the paper count: entered ballots plus the vote
// lines of every conventional source.
func (r *CountingCircleResult) ConventionalSubtotal() TallySubtotal {
	lines := r.EnteredVoteLines.Combine(r.BundleVoteLines)
	lines.EmptyVotes += r.BallotGroupEmptyVotes
	return TallySubtotal{BallotCounts: r.Ballots, VoteLines: lines}
}

// Subtotal combines the conventional and electronic sources.
func (r *CountingCircleResult) Subtotal() TallySubtotal {
	return r.ConventionalSubtotal().Combine(r.Electronic)
}

// HasConventionalCandidateVotes reports whether any conventional source
// produced candidate votes.
func (r *CountingCircleResult) HasConventionalCandidateVotes() bool {
	if r.CandidatesEntered || len(r.BallotGroups) > 0 {
		return true
	}
	for _, b := range r.Bundles {
		if b.State == BundleStateReviewed {
			return true
		}
	}
	return false
}

// CandidateVoteTotals returns the primary candidate votes per source.
func (r *CountingCircleResult) CandidateVoteTotals() (conventional, electronic int) {
	for _, c := range r.Candidates {
		conventional += c.Votes.ConventionalTotal()
		electronic += c.Votes.Electronic
	}
	return conventional, electronic
}

// BundlesInProgress lists the bundles that are neither reviewed nor deleted.
func (r *CountingCircleResult) BundlesInProgress() []*BallotBundle {
	var open []*BallotBundle
	for _, b := range r.Bundles {
		if !b.State.IsTerminal() {
			open = append(open, b)
		}
	}
	return open
}
