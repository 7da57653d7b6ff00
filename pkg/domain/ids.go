// Package domain holds typed identifiers shared across bounded contexts.
//
// Every identifier is a UUID under the hood, but each kind is its own type so a
// CandidateID can never be passed where a CountingCircleID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "votum/pkg/domain-errors"
)

// ID is a UUID tagged with the kind of entity it identifies.
type ID[T any] uuid.UUID

func (i ID[T]) String() string {
	return uuid.UUID(i).String()
}

// IsNil reports whether the identifier is the zero UUID.
func (i ID[T]) IsNil() bool {
	return uuid.UUID(i) == uuid.Nil
}

// UUID returns the untyped value, mostly for storage drivers.
func (i ID[T]) UUID() uuid.UUID {
	return uuid.UUID(i)
}

func (i ID[T]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID[T]) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid identifier")
	}
	*i = ID[T](parsed)
	return nil
}

type (
	tenantTag            struct{}
	userTag              struct{}
	contestTag           struct{}
	politicalBusinessTag struct{}
	countingCircleTag    struct{}
	resultTag            struct{}
	candidateTag         struct{}
	listTag              struct{}
	ballotGroupTag       struct{}
	ballotBundleTag      struct{}
	secondaryElectionTag struct{}
	verificationTokenTag struct{}
)

type (
	TenantID            = ID[tenantTag]
	UserID              = ID[userTag]
	ContestID           = ID[contestTag]
	PoliticalBusinessID = ID[politicalBusinessTag]
	CountingCircleID    = ID[countingCircleTag]
	ResultID            = ID[resultTag]
	CandidateID         = ID[candidateTag]
	ListID              = ID[listTag]
	BallotGroupID       = ID[ballotGroupTag]
	BallotBundleID      = ID[ballotBundleTag]
	SecondaryElectionID = ID[secondaryElectionTag]
	VerificationTokenID = ID[verificationTokenTag]
)

// resultNamespace seeds deterministic counting circle result identifiers.
var resultNamespace = uuid.MustParse("6f1d8a52-3c41-4f8e-9a0b-2d7e5c9b1a44")

// NewResultID derives the identity of the result a counting circle submits for
// a political business. The same pair always yields the same id.
func NewResultID(businessID PoliticalBusinessID, circleID CountingCircleID) ResultID {
	name := make([]byte, 0, 32)
	name = append(name, businessID[:]...)
	name = append(name, circleID[:]...)
	return ResultID(uuid.NewSHA1(resultNamespace, name))
}

func parseID[T any](s, kind string) (ID[T], error) {
	if strings.TrimSpace(s) == "" {
		return ID[T]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ID[T]{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return ID[T]{}, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be nil", kind)
	}
	return ID[T](parsed), nil
}

func ParseTenantID(s string) (TenantID, error) { return parseID[tenantTag](s, "tenant id") }
func ParseUserID(s string) (UserID, error)     { return parseID[userTag](s, "user id") }
func ParseContestID(s string) (ContestID, error) {
	return parseID[contestTag](s, "contest id")
}
func ParsePoliticalBusinessID(s string) (PoliticalBusinessID, error) {
	return parseID[politicalBusinessTag](s, "political business id")
}
func ParseCountingCircleID(s string) (CountingCircleID, error) {
	return parseID[countingCircleTag](s, "counting circle id")
}
func ParseResultID(s string) (ResultID, error) { return parseID[resultTag](s, "result id") }
func ParseCandidateID(s string) (CandidateID, error) {
	return parseID[candidateTag](s, "candidate id")
}
func ParseListID(s string) (ListID, error) { return parseID[listTag](s, "list id") }
func ParseBallotBundleID(s string) (BallotBundleID, error) {
	return parseID[ballotBundleTag](s, "ballot bundle id")
}
func ParseSecondaryElectionID(s string) (SecondaryElectionID, error) {
	return parseID[secondaryElectionTag](s, "secondary election id")
}
func ParseVerificationTokenID(s string) (VerificationTokenID, error) {
	return parseID[verificationTokenTag](s, "verification token id")
}
