package models

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	dErrors "votum/pkg/domain-errors"
)

// BallotCounts are the ballot figures of one source.
type BallotCounts struct {
	ReceivedBallots  int `json:"received_ballots" validate:"gte=0"`
	BlankBallots     int `json:"blank_ballots" validate:"gte=0"`
	InvalidBallots   int `json:"invalid_ballots" validate:"gte=0"`
	AccountedBallots int `json:"accounted_ballots" validate:"gte=0"`
}

// VoteLines are the vote lines of majority ballots not given to a
// configured candidate.
type VoteLines struct {
	IndividualVotes int `json:"individual_votes" validate:"gte=0"`
	EmptyVotes      int `json:"empty_votes" validate:"gte=0"`
	InvalidVotes    int `json:"invalid_votes" validate:"gte=0"`
}

func (v VoteLines) Combine(other VoteLines) VoteLines {
	return VoteLines{
		IndividualVotes: v.IndividualVotes + other.IndividualVotes,
		EmptyVotes:      v.EmptyVotes + other.EmptyVotes,
		InvalidVotes:    v.InvalidVotes + other.InvalidVotes,
	}
}

// Total is the number of vote lines counted here.
func (v VoteLines) Total() int {
	return v.IndividualVotes + v.EmptyVotes + v.InvalidVotes
}

// TallySubtotal holds the counts of one source: the conventional paper
// count or the electronic count.
type TallySubtotal struct {
	BallotCounts
	VoteLines
}

// Combine sums two subtotals, typically conventional and electronic.
func (t TallySubtotal) Combine(other TallySubtotal) TallySubtotal {
	return TallySubtotal{
		BallotCounts: BallotCounts{
			ReceivedBallots:  t.ReceivedBallots + other.ReceivedBallots,
			BlankBallots:     t.BlankBallots + other.BlankBallots,
			InvalidBallots:   t.InvalidBallots + other.InvalidBallots,
			AccountedBallots: t.AccountedBallots + other.AccountedBallots,
		},
		VoteLines: t.VoteLines.Combine(other.VoteLines),
	}
}

// ValidationRules parameterize the majority vote identity. CandidateVotes is
// nil when no candidate results were entered, which skips the identity.
type ValidationRules struct {
	Majority       bool
	Mandates       int
	CandidateVotes *int
	Scope          string
}

// Validate checks the ballot identities. Every broken identity is reported.
func (t TallySubtotal) Validate(rules ValidationRules) error {
	var result *multierror.Error
	if t.ReceivedBallots < 0 || t.BlankBallots < 0 || t.InvalidBallots < 0 || t.AccountedBallots < 0 {
		result = multierror.Append(result, fmt.Errorf("%sballot counts must not be negative", scopePrefix(rules.Scope)))
	}
	if want := t.ReceivedBallots - t.BlankBallots - t.InvalidBallots; t.AccountedBallots != want {
		result = multierror.Append(result, fmt.Errorf("%saccounted ballots %d != received %d - blank %d - invalid %d",
			scopePrefix(rules.Scope), t.AccountedBallots, t.ReceivedBallots, t.BlankBallots, t.InvalidBallots))
	}
	if err := t.VoteLines.validate(t.AccountedBallots, rules); err != nil {
		result = multierror.Append(result, err)
	}
	if result == nil {
		return nil
	}
	return dErrors.Wrap(result, dErrors.CodeInvariantViolation, "ballot counts are inconsistent")
}

func (v VoteLines) validate(accounted int, rules ValidationRules) error {
	if !rules.Majority || rules.CandidateVotes == nil {
		return nil
	}
	lhs := rules.Mandates * accounted
	rhs := *rules.CandidateVotes + v.Total()
	if lhs != rhs {
		return fmt.Errorf("%smandates %d x accounted ballots %d = %d != candidate votes %d + individual %d + empty %d + invalid %d",
			scopePrefix(rules.Scope), rules.Mandates, accounted, lhs, *rules.CandidateVotes, v.IndividualVotes, v.EmptyVotes, v.InvalidVotes)
	}
	return nil
}

func scopePrefix(scope string) string {
	if scope == "" {
		return ""
	}
	return scope + ": "
}
