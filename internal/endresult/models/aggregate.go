package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	id "votum/pkg/domain"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

// AggregateType tags end result streams in the event store.
const AggregateType = "end_result"

func StreamID(businessID id.PoliticalBusinessID) string {
	return "endresult-" + businessID.String()
}

const (
	EventLotDecisionsUpdated           = "LotDecisionsUpdated"
	EventSecondaryLotDecisionsUpdated  = "SecondaryLotDecisionsUpdated"
	EventEndResultFinalized            = "EndResultFinalized"
	EventEndResultFinalizationReverted = "EndResultFinalizationReverted"
)

// CandidateLotDecision assigns a drawn rank to a tied candidate.
type CandidateLotDecision struct {
	CandidateID id.CandidateID `json:"candidate_id"`
	Rank        int            `json:"rank"`
}

// ListLotDecision assigns a drawn seat rank to a list tied for the last seat.
type ListLotDecision struct {
	ListID id.ListID `json:"list_id"`
	Rank   int       `json:"rank"`
}

type SecondaryLotDecision struct {
	SecondaryElectionID id.SecondaryElectionID `json:"secondary_election_id"`
	CandidateID         id.CandidateID         `json:"candidate_id"`
	Rank                int                    `json:"rank"`
}

type Event interface {
	EventType() string
}

// LotDecisionsUpdated replaces every primary lot decision.
type LotDecisionsUpdated struct {
	Candidates []CandidateLotDecision `json:"candidates"`
	Lists      []ListLotDecision      `json:"lists,omitempty"`
}

// SecondaryLotDecisionsUpdated records drawn ranks for secondary election
// candidates. Decisions of groups it does not name are kept.
type SecondaryLotDecisionsUpdated struct {
	Decisions []SecondaryLotDecision `json:"decisions"`
}

type EndResultFinalized struct {
	SnapshotHash string `json:"snapshot_hash"`
}

type EndResultFinalizationReverted struct {
	SnapshotHash string `json:"snapshot_hash"`
}

func (LotDecisionsUpdated) EventType() string           { return EventLotDecisionsUpdated }
func (SecondaryLotDecisionsUpdated) EventType() string  { return EventSecondaryLotDecisionsUpdated }
func (EndResultFinalized) EventType() string            { return EventEndResultFinalized }
func (EndResultFinalizationReverted) EventType() string { return EventEndResultFinalizationReverted }

// EndResultAggregate is the event-sourced state behind an end result: the
// recorded lot decisions and the finalized flag.
type EndResultAggregate struct {
	PoliticalBusinessID id.PoliticalBusinessID                            `json:"political_business_id"`
	CandidateDecisions  map[id.CandidateID]int                            `json:"candidate_decisions"`
	ListDecisions       map[id.ListID]int                                 `json:"list_decisions"`
	SecondaryDecisions  map[id.SecondaryElectionID]map[id.CandidateID]int `json:"secondary_decisions"`
	Finalized           bool                                              `json:"finalized"`
	FinalizedAt         *time.Time                                        `json:"finalized_at,omitempty"`
	Version             int64                                             `json:"version"`
}

func NewEndResultAggregate(businessID id.PoliticalBusinessID) *EndResultAggregate {
	return &EndResultAggregate{
		PoliticalBusinessID: businessID,
		CandidateDecisions:  make(map[id.CandidateID]int),
		ListDecisions:       make(map[id.ListID]int),
		SecondaryDecisions:  make(map[id.SecondaryElectionID]map[id.CandidateID]int),
	}
}

// Apply folds one event at version. Already applied versions are skipped.
func (a *EndResultAggregate) Apply(version int64, occurredAt time.Time, event Event) bool {
	if version <= a.Version {
		return false
	}
	switch e := event.(type) {
	case LotDecisionsUpdated:
		a.CandidateDecisions = make(map[id.CandidateID]int, len(e.Candidates))
		for _, d := range e.Candidates {
			a.CandidateDecisions[d.CandidateID] = d.Rank
		}
		a.ListDecisions = make(map[id.ListID]int, len(e.Lists))
		for _, d := range e.Lists {
			a.ListDecisions[d.ListID] = d.Rank
		}
	case SecondaryLotDecisionsUpdated:
		for _, d := range e.Decisions {
			if a.SecondaryDecisions[d.SecondaryElectionID] == nil {
				a.SecondaryDecisions[d.SecondaryElectionID] = make(map[id.CandidateID]int)
			}
			a.SecondaryDecisions[d.SecondaryElectionID][d.CandidateID] = d.Rank
		}
	case EndResultFinalized:
		a.Finalized = true
		at := occurredAt
		a.FinalizedAt = &at
	case EndResultFinalizationReverted:
		a.Finalized = false
		a.FinalizedAt = nil
	}
	a.Version = version
	return true
}

var registry = map[string]func() Event{
	EventLotDecisionsUpdated:           func() Event { return &LotDecisionsUpdated{} },
	EventSecondaryLotDecisionsUpdated:  func() Event { return &SecondaryLotDecisionsUpdated{} },
	EventEndResultFinalized:            func() Event { return &EndResultFinalized{} },
	EventEndResultFinalizationReverted: func() Event { return &EndResultFinalizationReverted{} },
}

// IsKnownEvent reports whether eventType belongs to end result streams.
func IsKnownEvent(eventType string) bool {
	_, ok := registry[eventType]
	return ok
}

// Decode turns an envelope into an end result event. Unknown types are fatal.
func Decode(env eventstore.Envelope) (Event, error) {
	factory, ok := registry[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q in stream %s", sentinel.ErrUnknownEvent, env.Type, env.StreamID)
	}
	event := factory()
	if err := json.Unmarshal(env.Payload, event); err != nil {
		return nil, fmt.Errorf("decode %s v%d: %w", env.Type, env.Version, err)
	}
	switch v := event.(type) {
	case *LotDecisionsUpdated:
		return *v, nil
	case *SecondaryLotDecisionsUpdated:
		return *v, nil
	case *EndResultFinalized:
		return *v, nil
	case *EndResultFinalizationReverted:
		return *v, nil
	}
	return event, nil
}

// FoldAggregate rebuilds the aggregate from its stream.
func FoldAggregate(businessID id.PoliticalBusinessID, envs []eventstore.Envelope) (*EndResultAggregate, error) {
	a := NewEndResultAggregate(businessID)
	for _, env := range envs {
		event, err := Decode(env)
		if err != nil {
			return nil, err
		}
		a.Apply(env.Version, env.OccurredAt, event)
	}
	return a, nil
}

// Clone returns a deep copy, used to evaluate proposed decisions.
func (a *EndResultAggregate) Clone() *EndResultAggregate {
	c := *a
	c.CandidateDecisions = maps.Clone(a.CandidateDecisions)
	c.ListDecisions = maps.Clone(a.ListDecisions)
	c.SecondaryDecisions = make(map[id.SecondaryElectionID]map[id.CandidateID]int, len(a.SecondaryDecisions))
	for k, v := range a.SecondaryDecisions {
		c.SecondaryDecisions[k] = maps.Clone(v)
	}
	return &c
}
