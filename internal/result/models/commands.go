package models

import (
	"github.com/hashicorp/go-multierror"

	contestModels "votum/internal/contest/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

// Commands decide events against the current state without mutating it.
// The service appends the returned events and folds them afterwards.

// CandidateEntry is the conventional final result of one circle.
type CandidateEntry struct {
	VoteLines  VoteLines        `json:"vote_lines"`
	Candidates []CandidateVotes `json:"candidates" validate:"dive"`
	Lists      []ListVotes      `json:"lists,omitempty" validate:"dive"`
	Secondary  []SecondaryEntry `json:"secondary,omitempty" validate:"dive"`
}

// ElectronicEntry is the import of the e-voting count of one circle.
type ElectronicEntry struct {
	Subtotal   TallySubtotal    `json:"subtotal"`
	Candidates []CandidateVotes `json:"candidates" validate:"dive"`
	Lists      []ListVotes      `json:"lists,omitempty" validate:"dive"`
	Secondary  []SecondaryEntry `json:"secondary,omitempty" validate:"dive"`
}

func (r *CountingCircleResult) StartSubmission(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "start_submission", StateInitial); err != nil {
		return nil, err
	}
	return []Event{SubmissionStarted{
		ResultID:            r.ID,
		PoliticalBusinessID: r.PoliticalBusinessID,
		CountingCircleID:    r.CountingCircleID,
	}}, nil
}

func (r *CountingCircleResult) DefineEntry(cc CommandContext, def EntryDefinition) ([]Event, error) {
	if err := r.guard(cc, "define_entry", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if def.Type != EntryTypeFinalResults && def.Type != EntryTypeDetailed {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown entry type").With("entry_type", def.Type)
	}
	if !def.IsDetailed() && cc.Settings.EnforceDetailedEntry {
		return nil, dErrors.New(dErrors.CodeValidation, "canton enforces detailed entry")
	}
	if def.BallotBundleSize < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ballot bundle size must not be negative")
	}
	return []Event{EntryDefined{Definition: def}}, nil
}

func (r *CountingCircleResult) EnterCountOfVoters(cc CommandContext, ballots BallotCounts) ([]Event, error) {
	if err := r.guard(cc, "enter_count_of_voters", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if ballots.ReceivedBallots < 0 || ballots.BlankBallots < 0 || ballots.InvalidBallots < 0 || ballots.AccountedBallots < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ballot counts must not be negative")
	}
	return []Event{CountOfVotersEntered{Ballots: ballots}}, nil
}

func (r *CountingCircleResult) EnterCandidateResults(cc CommandContext, entry CandidateEntry) ([]Event, error) {
	if err := r.guard(cc, "enter_candidate_results", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if r.Entry.IsDetailed() && cc.Settings.EnforceDetailedEntry {
		return nil, dErrors.New(dErrors.CodeValidation, "final results cannot be entered while detailed entry is enforced")
	}
	if err := checkVotes(cc.Business, entry.VoteLines, entry.Candidates, entry.Lists, entry.Secondary); err != nil {
		return nil, err
	}
	return []Event{CandidateResultsEntered(entry)}, nil
}

func (r *CountingCircleResult) EnterBallotGroupResults(cc CommandContext, groups []BallotGroupCount) ([]Event, error) {
	if err := r.guard(cc, "enter_ballot_group_results", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if cc.Business.IsProportional() {
		return nil, dErrors.New(dErrors.CodeValidation, "ballot groups exist only for majority elections")
	}

	seen := make(map[id.BallotGroupID]bool, len(groups))
	votes := make(map[id.CandidateID]int)
	emptyVotes := 0
	for _, g := range groups {
		group, ok := cc.Business.BallotGroup(g.BallotGroupID)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown ballot group").With("ballot_group_id", g.BallotGroupID)
		}
		if seen[g.BallotGroupID] {
			return nil, dErrors.New(dErrors.CodeValidation, "ballot group entered twice").With("ballot_group_id", g.BallotGroupID)
		}
		if g.Ballots < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "ballot group count must not be negative").With("ballot_group_id", g.BallotGroupID)
		}
		seen[g.BallotGroupID] = true
		for _, cid := range group.CandidateIDs {
			votes[cid] += g.Ballots
		}
		if unused := cc.Business.NumberOfMandates - len(group.CandidateIDs); unused > 0 {
			emptyVotes += unused * g.Ballots
		}
	}

	event := BallotGroupResultsEntered{Groups: groups, EmptyVotes: emptyVotes}
	for _, c := range cc.Business.Candidates {
		if v, ok := votes[c.ID]; ok {
			event.Candidates = append(event.Candidates, CandidateVotes{CandidateID: c.ID, Votes: v})
		}
	}
	return []Event{event}, nil
}

func (r *CountingCircleResult) ImportElectronicResults(cc CommandContext, entry ElectronicEntry) ([]Event, error) {
	if err := r.guard(cc, "import_electronic_results", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if err := checkVotes(cc.Business, entry.Subtotal.VoteLines, entry.Candidates, entry.Lists, entry.Secondary); err != nil {
		return nil, err
	}
	return []Event{ElectronicResultsImported(entry)}, nil
}

func (r *CountingCircleResult) CreateBallotBundle(cc CommandContext, bundleID id.BallotBundleID, number int) ([]Event, error) {
	if err := r.guard(cc, "create_ballot_bundle", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if !r.Entry.IsDetailed() {
		return nil, dErrors.New(dErrors.CodeValidation, "ballot bundles require detailed entry")
	}
	if _, exists := r.Bundles[bundleID]; exists {
		return nil, dErrors.New(dErrors.CodeConflict, "ballot bundle already exists").With("bundle_id", bundleID)
	}
	for _, b := range r.Bundles {
		if b.Number == number && b.State != BundleStateDeleted {
			return nil, dErrors.New(dErrors.CodeConflict, "ballot bundle number in use").With("number", number)
		}
	}
	return []Event{BallotBundleCreated{BundleID: bundleID, Number: number, CreatedBy: cc.UserID}}, nil
}

func (r *CountingCircleResult) SubmitBallotBundle(cc CommandContext, bundleID id.BallotBundleID, content BundleContent) ([]Event, error) {
	b, err := r.bundleCommand(cc, "submit_ballot_bundle", bundleID, BundleStateInProcess, BundleStateInCorrection)
	if err != nil {
		return nil, err
	}
	if content.Ballots < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "bundle ballots must not be negative")
	}
	if size := r.Entry.BallotBundleSize; size > 0 && content.Ballots > size {
		return nil, dErrors.New(dErrors.CodeValidation, "bundle exceeds the configured size").
			With("bundle_id", b.ID).With("ballots", content.Ballots).With("size", size)
	}
	if err := checkVotes(cc.Business, content.VoteLines, content.Candidates, content.Lists, nil); err != nil {
		return nil, err
	}
	return []Event{BallotBundleSubmitted{BundleID: b.ID, Content: content}}, nil
}

// ReviewBallotBundle accepts a submitted bundle. The reviewer must not be
// the user who captured it.
func (r *CountingCircleResult) ReviewBallotBundle(cc CommandContext, bundleID id.BallotBundleID) ([]Event, error) {
	b, err := r.bundleCommand(cc, "review_ballot_bundle", bundleID, BundleStateReadyForReview)
	if err != nil {
		return nil, err
	}
	if !cc.UserID.IsNil() && b.CreatedBy == cc.UserID {
		return nil, dErrors.New(dErrors.CodeForbidden, "a bundle cannot be reviewed by its creator").With("bundle_id", b.ID)
	}
	return []Event{BallotBundleReviewed{BundleID: b.ID, ReviewedBy: cc.UserID}}, nil
}

func (r *CountingCircleResult) RejectBallotBundle(cc CommandContext, bundleID id.BallotBundleID) ([]Event, error) {
	b, err := r.bundleCommand(cc, "reject_ballot_bundle", bundleID, BundleStateReadyForReview)
	if err != nil {
		return nil, err
	}
	return []Event{BallotBundleRejected{BundleID: b.ID}}, nil
}

func (r *CountingCircleResult) DeleteBallotBundle(cc CommandContext, bundleID id.BallotBundleID) ([]Event, error) {
	b, err := r.bundleCommand(cc, "delete_ballot_bundle", bundleID,
		BundleStateInProcess, BundleStateReadyForReview, BundleStateInCorrection, BundleStateReviewed)
	if err != nil {
		return nil, err
	}
	return []Event{BallotBundleDeleted{BundleID: b.ID}}, nil
}

func (r *CountingCircleResult) FinishSubmission(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "finish_submission", StateSubmissionOngoing); err != nil {
		return nil, err
	}
	if err := r.checkComplete(cc.Business); err != nil {
		return nil, err
	}
	return []Event{SubmissionFinished{}}, nil
}

// FlagForCorrection sends a submitted result back to the circle. A published
// result is withdrawn when the settings' unpublish policy says so.
func (r *CountingCircleResult) FlagForCorrection(cc CommandContext, comment string) ([]Event, error) {
	if err := r.guard(cc, "flag_for_correction", StateSubmissionDone, StateCorrectionDone); err != nil {
		return nil, err
	}
	events := []Event{FlaggedForCorrection{Comment: comment}}
	if r.Published && cc.Settings.unpublishOnCorrection(r) {
		events = append(events, Unpublished{})
	}
	return events, nil
}

func (r *CountingCircleResult) FinishCorrection(cc CommandContext, comment string) ([]Event, error) {
	if err := r.guard(cc, "finish_correction", StateReadyForCorrection); err != nil {
		return nil, err
	}
	if err := r.checkComplete(cc.Business); err != nil {
		return nil, err
	}
	return []Event{CorrectionFinished{Comment: comment}}, nil
}

func (r *CountingCircleResult) AuditTentatively(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "audit_tentatively", StateSubmissionDone, StateCorrectionDone); err != nil {
		return nil, err
	}
	return []Event{AuditedTentatively{}}, nil
}

func (r *CountingCircleResult) Plausibilise(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "plausibilise", StateAuditedTentatively); err != nil {
		return nil, err
	}
	return []Event{Plausibilised{}}, nil
}

func (r *CountingCircleResult) ResetToAuditedTentatively(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "reset_to_audited_tentatively", StatePlausibilised); err != nil {
		return nil, err
	}
	return []Event{ResettedToAuditedTentatively{}}, nil
}

// ResetToSubmissionFinished takes a done result back to SubmissionDone with
// its data kept. A finalized end result must be reverted first. Like a
// correction, it withdraws a publication the settings no longer allow.
func (r *CountingCircleResult) ResetToSubmissionFinished(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "reset_to_submission_finished", StateAuditedTentatively, StatePlausibilised); err != nil {
		return nil, err
	}
	if cc.EndResultFinalized {
		return nil, dErrors.New(dErrors.CodeInvalidStateTransition, "end result is finalized").
			With("state", r.State).With("command", "reset_to_submission_finished")
	}
	events := []Event{ResettedToSubmissionFinished{}}
	if r.Published && cc.Settings.unpublishOnCorrection(r) {
		events = append(events, Unpublished{})
	}
	return events, nil
}

// Reset reopens a submitted result for entry from scratch, dropping every
// conventional count and bundle.
func (r *CountingCircleResult) Reset(cc CommandContext) ([]Event, error) {
	if err := r.guard(cc, "reset", StateSubmissionDone, StateReadyForCorrection, StateCorrectionDone); err != nil {
		return nil, err
	}
	return []Event{Resetted{}}, nil
}

func (r *CountingCircleResult) Publish(cc CommandContext) ([]Event, error) {
	allowed := []State{StateAuditedTentatively, StatePlausibilised}
	if cc.Settings.PublishResultsBeforeAuditedTentatively {
		allowed = append(allowed, StateSubmissionDone, StateCorrectionDone)
	}
	if err := r.guard(cc, "publish", allowed...); err != nil {
		return nil, err
	}
	if r.Published {
		return nil, dErrors.New(dErrors.CodeInvalidStateTransition, "result is already published").
			With("state", r.State).With("command", "publish")
	}
	return []Event{Published{}}, nil
}

func (r *CountingCircleResult) Unpublish(cc CommandContext) ([]Event, error) {
	if cc.ContestLocked {
		return nil, contestLocked()
	}
	if !r.Published {
		return nil, dErrors.New(dErrors.CodeInvalidStateTransition, "result is not published").
			With("state", r.State).With("command", "unpublish")
	}
	return []Event{Unpublished{}}, nil
}

// guard checks the contest lock before the state.
func (r *CountingCircleResult) guard(cc CommandContext, command string, allowed ...State) error {
	if cc.ContestLocked {
		return contestLocked()
	}
	for _, s := range allowed {
		if r.State == s {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeInvalidStateTransition, "%s is not allowed in state %s", command, r.State).
		With("state", r.State).With("command", command)
}

func (r *CountingCircleResult) bundleCommand(cc CommandContext, command string, bundleID id.BallotBundleID, allowed ...BundleState) (*BallotBundle, error) {
	if err := r.guard(cc, command, StateSubmissionOngoing); err != nil {
		return nil, err
	}
	b, ok := r.Bundles[bundleID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "ballot bundle not found").With("bundle_id", bundleID)
	}
	for _, s := range allowed {
		if b.State == s {
			return b, nil
		}
	}
	return nil, dErrors.Newf(dErrors.CodeInvalidStateTransition, "%s is not allowed for a bundle in state %s", command, b.State).
		With("bundle_id", bundleID).With("bundle_state", b.State).With("command", command)
}

// checkComplete runs the guards shared by finishing a submission and a
// correction: no open bundles, consistent counts.
func (r *CountingCircleResult) checkComplete(business *contestModels.PoliticalBusiness) error {
	if open := r.BundlesInProgress(); len(open) > 0 {
		return dErrors.Newf(dErrors.CodeBundlesInProgress, "%d ballot bundles are not reviewed", len(open)).
			With("bundle_id", open[0].ID).With("bundle_state", open[0].State)
	}
	return r.Validate(business)
}

// Validate checks the ballot identities of every source and election.
func (r *CountingCircleResult) Validate(business *contestModels.PoliticalBusiness) error {
	majority := !business.IsProportional()
	conventionalVotes, electronicVotes := r.CandidateVoteTotals()

	var result *multierror.Error
	rules := ValidationRules{Majority: majority, Mandates: business.NumberOfMandates, Scope: "conventional"}
	if r.HasConventionalCandidateVotes() {
		rules.CandidateVotes = &conventionalVotes
	}
	if err := r.ConventionalSubtotal().Validate(rules); err != nil {
		result = multierror.Append(result, err)
	}
	if r.ElectronicImported {
		rules := ValidationRules{Majority: majority, Mandates: business.NumberOfMandates, Scope: "electronic", CandidateVotes: &electronicVotes}
		if err := r.Electronic.Validate(rules); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for _, se := range business.SecondaryElections {
		s, ok := r.Secondary[se.ID]
		if !ok {
			continue
		}
		conventional, electronic := 0, 0
		for _, c := range s.Candidates {
			conventional += c.Votes.ConventionalTotal()
			electronic += c.Votes.Electronic
		}
		if s.CandidatesEntered {
			rules := ValidationRules{Majority: true, Mandates: se.NumberOfMandates, CandidateVotes: &conventional, Scope: "secondary " + se.ID.String()}
			if err := (TallySubtotal{BallotCounts: r.Ballots, VoteLines: s.Conventional}).Validate(rules); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if r.ElectronicImported {
			rules := ValidationRules{Majority: true, Mandates: se.NumberOfMandates, CandidateVotes: &electronic, Scope: "secondary electronic " + se.ID.String()}
			if err := (TallySubtotal{BallotCounts: r.Electronic.BallotCounts, VoteLines: s.Electronic}).Validate(rules); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}

	if result == nil {
		return nil
	}
	return dErrors.Wrap(result.ErrorOrNil(), dErrors.CodeInvariantViolation, "result counts are inconsistent").With("state", r.State)
}

// checkVotes validates entered votes against the business configuration.
func checkVotes(business *contestModels.PoliticalBusiness, lines VoteLines, candidates []CandidateVotes, lists []ListVotes, secondary []SecondaryEntry) error {
	if lines.IndividualVotes < 0 || lines.EmptyVotes < 0 || lines.InvalidVotes < 0 {
		return dErrors.New(dErrors.CodeValidation, "vote lines must not be negative")
	}
	if lines.IndividualVotes > 0 && !business.IndividualCandidateVotesEnabled {
		return dErrors.New(dErrors.CodeValidation, "individual candidate votes are not enabled")
	}
	seen := make(map[id.CandidateID]bool, len(candidates))
	for _, cv := range candidates {
		if !business.HasCandidate(cv.CandidateID) {
			return dErrors.New(dErrors.CodeValidation, "unknown candidate").With("candidate_id", cv.CandidateID)
		}
		if seen[cv.CandidateID] {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "candidate entered twice").With("candidate_id", cv.CandidateID)
		}
		if cv.Votes < 0 {
			return dErrors.New(dErrors.CodeValidation, "candidate votes must not be negative").With("candidate_id", cv.CandidateID)
		}
		seen[cv.CandidateID] = true
	}
	if len(lists) > 0 && !business.IsProportional() {
		return dErrors.New(dErrors.CodeValidation, "list votes exist only for proportional elections")
	}
	seenLists := make(map[id.ListID]bool, len(lists))
	for _, lv := range lists {
		if !business.HasList(lv.ListID) {
			return dErrors.New(dErrors.CodeValidation, "unknown list").With("list_id", lv.ListID)
		}
		if seenLists[lv.ListID] {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "list entered twice").With("list_id", lv.ListID)
		}
		if lv.Votes < 0 {
			return dErrors.New(dErrors.CodeValidation, "list votes must not be negative").With("list_id", lv.ListID)
		}
		seenLists[lv.ListID] = true
	}
	seenElections := make(map[id.SecondaryElectionID]bool, len(secondary))
	for _, se := range secondary {
		election, ok := business.SecondaryElection(se.SecondaryElectionID)
		if !ok {
			return dErrors.New(dErrors.CodeValidation, "unknown secondary election").With("secondary_election_id", se.SecondaryElectionID)
		}
		if seenElections[se.SecondaryElectionID] {
			return dErrors.New(dErrors.CodeDuplicateCandidate, "secondary election entered twice").
				With("secondary_election_id", se.SecondaryElectionID)
		}
		seenElections[se.SecondaryElectionID] = true
		known := make(map[id.CandidateID]bool, len(election.Candidates))
		for _, c := range election.Candidates {
			known[c.ID] = true
		}
		seenCandidates := make(map[id.CandidateID]bool, len(se.Candidates))
		for _, cv := range se.Candidates {
			if !known[cv.CandidateID] || cv.Votes < 0 {
				return dErrors.New(dErrors.CodeValidation, "invalid secondary candidate votes").
					With("secondary_election_id", se.SecondaryElectionID).With("candidate_id", cv.CandidateID)
			}
			if seenCandidates[cv.CandidateID] {
				return dErrors.New(dErrors.CodeDuplicateCandidate, "candidate entered twice").
					With("secondary_election_id", se.SecondaryElectionID).With("candidate_id", cv.CandidateID)
			}
			seenCandidates[cv.CandidateID] = true
		}
	}
	return nil
}

func contestLocked() error {
	return dErrors.New(dErrors.CodeContestLocked, "contest is locked")
}
