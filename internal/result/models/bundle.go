package models

import id "votum/pkg/domain"

type BundleState string

const (
	BundleStateInProcess      BundleState = "in_process"
	BundleStateReadyForReview BundleState = "ready_for_review"
	BundleStateInCorrection   BundleState = "in_correction"
	BundleStateReviewed       BundleState = "reviewed"
	BundleStateDeleted        BundleState = "deleted"
)

// IsTerminal reports whether the bundle no longer blocks submission.
func (s BundleState) IsTerminal() bool {
	return s == BundleStateReviewed || s == BundleStateDeleted
}

// CandidateVotes is an entered vote count for one candidate.
type CandidateVotes struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	Votes       int            `json:"votes" validate:"gte=0"`
}

// ListVotes is an entered vote count for one list.
type ListVotes struct {
	ListID id.ListID `json:"list_id"`
	Votes  int       `json:"votes" validate:"gte=0"`
}

// BundleContent is what a counted ballot bundle contributes once reviewed.
type BundleContent struct {
	Ballots    int              `json:"ballots" validate:"gte=0"`
	VoteLines  VoteLines        `json:"vote_lines"`
	Candidates []CandidateVotes `json:"candidates" validate:"dive"`
	Lists      []ListVotes      `json:"lists,omitempty" validate:"dive"`
}

// BallotBundle is a batch of individually captured ballots used for
// detailed entry.
type BallotBundle struct {
	ID        id.BallotBundleID `json:"id"`
	Number    int               `json:"number"`
	State     BundleState       `json:"state"`
	CreatedBy id.UserID         `json:"created_by"`
	Content   BundleContent     `json:"content"`
}
