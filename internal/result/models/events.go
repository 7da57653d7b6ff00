package models

import (
	"encoding/json"
	"fmt"
	"time"

	id "votum/pkg/domain"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

// AggregateType tags counting circle result streams in the event store.
const AggregateType = "counting_circle_result"

// StreamID names the stream of one counting circle result.
func StreamID(resultID id.ResultID) string {
	return "result-" + resultID.String()
}

// Event is a domain event of a counting circle result stream.
type Event interface {
	EventType() string
}

const (
	EventSubmissionStarted            = "SubmissionStarted"
	EventEntryDefined                 = "EntryDefined"
	EventCountOfVotersEntered         = "CountOfVotersEntered"
	EventCandidateResultsEntered      = "CandidateResultsEntered"
	EventBallotGroupResultsEntered    = "BallotGroupResultsEntered"
	EventElectronicResultsImported    = "ElectronicResultsImported"
	EventBallotBundleCreated          = "BallotBundleCreated"
	EventBallotBundleSubmitted        = "BallotBundleSubmitted"
	EventBallotBundleReviewed         = "BallotBundleReviewed"
	EventBallotBundleRejected         = "BallotBundleRejected"
	EventBallotBundleDeleted          = "BallotBundleDeleted"
	EventSubmissionFinished           = "SubmissionFinished"
	EventFlaggedForCorrection         = "FlaggedForCorrection"
	EventCorrectionFinished           = "CorrectionFinished"
	EventAuditedTentatively           = "AuditedTentatively"
	EventPlausibilised                = "Plausibilised"
	EventResettedToAuditedTentatively = "ResettedToAuditedTentatively"
	EventResettedToSubmissionFinished = "ResettedToSubmissionFinished"
	EventResetted                     = "Resetted"
	EventPublished                    = "Published"
	EventUnpublished                  = "Unpublished"
)

// SecondaryEntry carries the entered figures of one secondary election.
type SecondaryEntry struct {
	SecondaryElectionID id.SecondaryElectionID `json:"secondary_election_id"`
	VoteLines           VoteLines              `json:"vote_lines"`
	Candidates          []CandidateVotes       `json:"candidates" validate:"dive"`
}

// BallotGroupCount is the number of ballots counted for one ballot group.
type BallotGroupCount struct {
	BallotGroupID id.BallotGroupID `json:"ballot_group_id"`
	Ballots       int              `json:"ballots" validate:"gte=0"`
}

type SubmissionStarted struct {
	ResultID            id.ResultID            `json:"result_id"`
	PoliticalBusinessID id.PoliticalBusinessID `json:"political_business_id"`
	CountingCircleID    id.CountingCircleID    `json:"counting_circle_id"`
}

type EntryDefined struct {
	Definition EntryDefinition `json:"definition"`
}

type CountOfVotersEntered struct {
	Ballots BallotCounts `json:"ballots"`
}

type CandidateResultsEntered struct {
	VoteLines  VoteLines        `json:"vote_lines"`
	Candidates []CandidateVotes `json:"candidates"`
	Lists      []ListVotes      `json:"lists,omitempty"`
	Secondary  []SecondaryEntry `json:"secondary,omitempty"`
}

// BallotGroupResultsEntered records the group counts together with the
// candidate and empty votes derived from them, so replay needs no
// configuration.
type BallotGroupResultsEntered struct {
	Groups     []BallotGroupCount `json:"groups"`
	Candidates []CandidateVotes   `json:"candidates"`
	EmptyVotes int                `json:"empty_votes"`
}

type ElectronicResultsImported struct {
	Subtotal   TallySubtotal    `json:"subtotal"`
	Candidates []CandidateVotes `json:"candidates"`
	Lists      []ListVotes      `json:"lists,omitempty"`
	Secondary  []SecondaryEntry `json:"secondary,omitempty"`
}

type BallotBundleCreated struct {
	BundleID  id.BallotBundleID `json:"bundle_id"`
	Number    int               `json:"number"`
	CreatedBy id.UserID         `json:"created_by"`
}

type BallotBundleSubmitted struct {
	BundleID id.BallotBundleID `json:"bundle_id"`
	Content  BundleContent     `json:"content"`
}

type BallotBundleReviewed struct {
	BundleID   id.BallotBundleID `json:"bundle_id"`
	ReviewedBy id.UserID         `json:"reviewed_by"`
}

type BallotBundleRejected struct {
	BundleID id.BallotBundleID `json:"bundle_id"`
}

type BallotBundleDeleted struct {
	BundleID id.BallotBundleID `json:"bundle_id"`
}

type SubmissionFinished struct{}

type FlaggedForCorrection struct {
	Comment string `json:"comment,omitempty"`
}

type CorrectionFinished struct {
	Comment string `json:"comment,omitempty"`
}

type AuditedTentatively struct{}

type Plausibilised struct{}

type ResettedToAuditedTentatively struct{}

type ResettedToSubmissionFinished struct{}

type Resetted struct{}

type Published struct{}

type Unpublished struct{}

func (SubmissionStarted) EventType() string            { return EventSubmissionStarted }
func (EntryDefined) EventType() string                 { return EventEntryDefined }
func (CountOfVotersEntered) EventType() string         { return EventCountOfVotersEntered }
func (CandidateResultsEntered) EventType() string      { return EventCandidateResultsEntered }
func (BallotGroupResultsEntered) EventType() string    { return EventBallotGroupResultsEntered }
func (ElectronicResultsImported) EventType() string    { return EventElectronicResultsImported }
func (BallotBundleCreated) EventType() string          { return EventBallotBundleCreated }
func (BallotBundleSubmitted) EventType() string        { return EventBallotBundleSubmitted }
func (BallotBundleReviewed) EventType() string         { return EventBallotBundleReviewed }
func (BallotBundleRejected) EventType() string         { return EventBallotBundleRejected }
func (BallotBundleDeleted) EventType() string          { return EventBallotBundleDeleted }
func (SubmissionFinished) EventType() string           { return EventSubmissionFinished }
func (FlaggedForCorrection) EventType() string         { return EventFlaggedForCorrection }
func (CorrectionFinished) EventType() string           { return EventCorrectionFinished }
func (AuditedTentatively) EventType() string           { return EventAuditedTentatively }
func (Plausibilised) EventType() string                { return EventPlausibilised }
func (ResettedToAuditedTentatively) EventType() string { return EventResettedToAuditedTentatively }
func (ResettedToSubmissionFinished) EventType() string { return EventResettedToSubmissionFinished }
func (Resetted) EventType() string                     { return EventResetted }
func (Published) EventType() string                    { return EventPublished }
func (Unpublished) EventType() string                  { return EventUnpublished }

var registry = map[string]func() Event{
	EventSubmissionStarted:            func() Event { return &SubmissionStarted{} },
	EventEntryDefined:                 func() Event { return &EntryDefined{} },
	EventCountOfVotersEntered:         func() Event { return &CountOfVotersEntered{} },
	EventCandidateResultsEntered:      func() Event { return &CandidateResultsEntered{} },
	EventBallotGroupResultsEntered:    func() Event { return &BallotGroupResultsEntered{} },
	EventElectronicResultsImported:    func() Event { return &ElectronicResultsImported{} },
	EventBallotBundleCreated:          func() Event { return &BallotBundleCreated{} },
	EventBallotBundleSubmitted:        func() Event { return &BallotBundleSubmitted{} },
	EventBallotBundleReviewed:         func() Event { return &BallotBundleReviewed{} },
	EventBallotBundleRejected:         func() Event { return &BallotBundleRejected{} },
	EventBallotBundleDeleted:          func() Event { return &BallotBundleDeleted{} },
	EventSubmissionFinished:           func() Event { return &SubmissionFinished{} },
	EventFlaggedForCorrection:         func() Event { return &FlaggedForCorrection{} },
	EventCorrectionFinished:           func() Event { return &CorrectionFinished{} },
	EventAuditedTentatively:           func() Event { return &AuditedTentatively{} },
	EventPlausibilised:                func() Event { return &Plausibilised{} },
	EventResettedToAuditedTentatively: func() Event { return &ResettedToAuditedTentatively{} },
	EventResettedToSubmissionFinished: func() Event { return &ResettedToSubmissionFinished{} },
	EventResetted:                     func() Event { return &Resetted{} },
	EventPublished:                    func() Event { return &Published{} },
	EventUnpublished:                  func() Event { return &Unpublished{} },
}

// IsKnownEvent reports whether eventType belongs to result streams.
func IsKnownEvent(eventType string) bool {
	_, ok := registry[eventType]
	return ok
}

// AffectsEndResult reports whether an event moves a result into or out of
// the done milestone, or changes data while inside it.
func AffectsEndResult(eventType string) bool {
	switch eventType {
	case EventAuditedTentatively, EventPlausibilised,
		EventResettedToAuditedTentatively, EventResettedToSubmissionFinished:
		return true
	}
	return false
}

// Recorded is a decoded event at its stream position.
type Recorded struct {
	Version    int64
	OccurredAt time.Time
	Event      Event
}

// Decode turns an envelope back into a domain event. Unknown types are fatal.
func Decode(env eventstore.Envelope) (Recorded, error) {
	factory, ok := registry[env.Type]
	if !ok {
		return Recorded{}, fmt.Errorf("%w: %q in stream %s", sentinel.ErrUnknownEvent, env.Type, env.StreamID)
	}
	event := factory()
	if err := json.Unmarshal(env.Payload, event); err != nil {
		return Recorded{}, fmt.Errorf("decode %s v%d: %w", env.Type, env.Version, err)
	}
	return Recorded{Version: env.Version, OccurredAt: env.OccurredAt, Event: deref(event)}, nil
}

// DecodeAll decodes a loaded stream, stopping at the first failure.
func DecodeAll(envs []eventstore.Envelope) ([]Recorded, error) {
	out := make([]Recorded, 0, len(envs))
	for _, env := range envs {
		rec, err := Decode(env)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// deref returns the value form of a decoded event so type switches only
// need to handle values.
func deref(e Event) Event {
	switch v := e.(type) {
	case *SubmissionStarted:
		return *v
	case *EntryDefined:
		return *v
	case *CountOfVotersEntered:
		return *v
	case *CandidateResultsEntered:
		return *v
	case *BallotGroupResultsEntered:
		return *v
	case *ElectronicResultsImported:
		return *v
	case *BallotBundleCreated:
		return *v
	case *BallotBundleSubmitted:
		return *v
	case *BallotBundleReviewed:
		return *v
	case *BallotBundleRejected:
		return *v
	case *BallotBundleDeleted:
		return *v
	case *SubmissionFinished:
		return *v
	case *FlaggedForCorrection:
		return *v
	case *CorrectionFinished:
		return *v
	case *AuditedTentatively:
		return *v
	case *Plausibilised:
		return *v
	case *ResettedToAuditedTentatively:
		return *v
	case *ResettedToSubmissionFinished:
		return *v
	case *Resetted:
		return *v
	case *Published:
		return *v
	case *Unpublished:
		return *v
	}
	return e
}
