package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "votum/pkg/domain"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

func envelopes(t *testing.T, businessID id.PoliticalBusinessID, events ...Event) []eventstore.Envelope {
	t.Helper()
	out := make([]eventstore.Envelope, 0, len(events))
	for i, e := range events {
		env, err := eventstore.NewEnvelope(StreamID(businessID), AggregateType, int64(i+1), e.EventType(), e,
			eventstore.Metadata{PartitionKey: businessID.String()}, time.Date(2026, 3, 8, 18, i, 0, 0, time.UTC))
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

func TestFoldAggregate(t *testing.T) {
	businessID := id.PoliticalBusinessID(uuid.New())
	c1, c2 := id.CandidateID(uuid.New()), id.CandidateID(uuid.New())
	se := id.SecondaryElectionID(uuid.New())
	s1, s2 := id.CandidateID(uuid.New()), id.CandidateID(uuid.New())

	t.Run("primary decisions are replaced wholesale", func(t *testing.T) {
		agg, err := FoldAggregate(businessID, envelopes(t, businessID,
			LotDecisionsUpdated{Candidates: []CandidateLotDecision{{CandidateID: c1, Rank: 3}, {CandidateID: c2, Rank: 4}}},
			LotDecisionsUpdated{Candidates: []CandidateLotDecision{{CandidateID: c2, Rank: 3}}},
		))
		require.NoError(t, err)
		assert.Equal(t, map[id.CandidateID]int{c2: 3}, agg.CandidateDecisions)
		assert.Equal(t, int64(2), agg.Version)
	})

	t.Run("secondary decisions merge per candidate", func(t *testing.T) {
		agg, err := FoldAggregate(businessID, envelopes(t, businessID,
			SecondaryLotDecisionsUpdated{Decisions: []SecondaryLotDecision{{SecondaryElectionID: se, CandidateID: s1, Rank: 1}}},
			SecondaryLotDecisionsUpdated{Decisions: []SecondaryLotDecision{{SecondaryElectionID: se, CandidateID: s2, Rank: 2}}},
		))
		require.NoError(t, err)
		assert.Equal(t, map[id.CandidateID]int{s1: 1, s2: 2}, agg.SecondaryDecisions[se])
	})

	t.Run("finalization toggles", func(t *testing.T) {
		agg, err := FoldAggregate(businessID, envelopes(t, businessID,
			EndResultFinalized{SnapshotHash: "a"},
		))
		require.NoError(t, err)
		assert.True(t, agg.Finalized)
		require.NotNil(t, agg.FinalizedAt)

		agg, err = FoldAggregate(businessID, envelopes(t, businessID,
			EndResultFinalized{SnapshotHash: "a"},
			EndResultFinalizationReverted{SnapshotHash: "a"},
		))
		require.NoError(t, err)
		assert.False(t, agg.Finalized)
		assert.Nil(t, agg.FinalizedAt)
	})

	t.Run("unknown events are fatal", func(t *testing.T) {
		envs := envelopes(t, businessID, EndResultFinalized{})
		envs[0].Type = "Renamed"
		_, err := FoldAggregate(businessID, envs)
		assert.ErrorIs(t, err, sentinel.ErrUnknownEvent)
	})
}

func TestApplySkipsReplayedVersions(t *testing.T) {
	agg := NewEndResultAggregate(id.PoliticalBusinessID(uuid.New()))

	assert.True(t, agg.Apply(1, time.Now(), EndResultFinalized{}))
	assert.False(t, agg.Apply(1, time.Now(), EndResultFinalizationReverted{}))
	assert.True(t, agg.Finalized)
}

func TestCloneIsIndependent(t *testing.T) {
	agg := NewEndResultAggregate(id.PoliticalBusinessID(uuid.New()))
	se, c := id.SecondaryElectionID(uuid.New()), id.CandidateID(uuid.New())
	agg.SecondaryDecisions[se] = map[id.CandidateID]int{c: 1}
	agg.CandidateDecisions[c] = 2

	clone := agg.Clone()
	clone.SecondaryDecisions[se][c] = 5
	clone.CandidateDecisions[c] = 7

	assert.Equal(t, 1, agg.SecondaryDecisions[se][c])
	assert.Equal(t, 2, agg.CandidateDecisions[c])
}
