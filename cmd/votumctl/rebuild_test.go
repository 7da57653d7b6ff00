package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votum/internal/endresult/models"
	id "votum/pkg/domain"
)

func TestRebuild_BoundsParallelRecomputes(t *testing.T) {
	ids := make([]id.PoliticalBusinessID, 6)
	for i := range ids {
		ids[i] = id.PoliticalBusinessID(uuid.New())
	}
	failing := ids[2]

	var running, peak atomic.Int32
	recompute := func(_ context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if businessID == failing {
			return nil, errors.New("stream unreadable")
		}
		return &models.EndResult{PoliticalBusinessID: businessID, TotalCountOfCountingCircles: 2}, nil
	}

	outcomes := rebuild(context.Background(), recompute, ids, 2)

	require.Len(t, outcomes, len(ids))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, o := range outcomes {
		assert.Equal(t, ids[i], o.businessID, "outcomes keep input order")
		if o.businessID == failing {
			assert.Error(t, o.err)
			continue
		}
		require.NoError(t, o.err)
		assert.Equal(t, ids[i], o.endResult.PoliticalBusinessID)
	}
}

func TestPrintOutcome(t *testing.T) {
	businessID := id.PoliticalBusinessID(uuid.New())
	var out bytes.Buffer
	printOutcome(&out, outcome{businessID: businessID, endResult: &models.EndResult{
		CountOfDoneCountingCircles:  1,
		TotalCountOfCountingCircles: 3,
	}})
	assert.Equal(t, businessID.String()+"\t1/3 done\topen lot decisions: 0\tfinalized: false\n", out.String())
}
