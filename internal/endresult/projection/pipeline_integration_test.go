//go:build integration

package projection

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votum/internal/endresult/models"
	"votum/internal/platform/kafka/consumer"
	"votum/internal/platform/kafka/producer"
	"votum/internal/platform/outbox"
	resultModels "votum/internal/result/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/eventstore/postgres"
	"votum/pkg/testutil/containers"
)

// syncRecomputer is safe to share with the consumer goroutine.
type syncRecomputer struct {
	mu    sync.Mutex
	calls []id.PoliticalBusinessID
}

func (r *syncRecomputer) Recompute(_ context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, businessID)
	return &models.EndResult{PoliticalBusinessID: businessID}, nil
}

func (r *syncRecomputer) seen() []id.PoliticalBusinessID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]id.PoliticalBusinessID(nil), r.calls...)
}

type PipelineSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
}

func TestPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *PipelineSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox", "events"))
}

// TestOutboxToProjector appends a done milestone, relays the outbox and
// expects the projector to recompute the business behind it.
func (s *PipelineSuite) TestOutboxToProjector() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	topic := "votum.events." + uuid.NewString()[:8]

	businessID := id.PoliticalBusinessID(uuid.New())
	resultID := id.NewResultID(businessID, id.CountingCircleID(uuid.New()))
	streamID := resultModels.StreamID(resultID)
	env, err := eventstore.NewEnvelope(streamID, resultModels.AggregateType, 1,
		resultModels.EventAuditedTentatively, resultModels.AuditedTentatively{},
		eventstore.Metadata{PartitionKey: businessID.String()}, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(postgres.New(s.postgres.DB).Append(ctx, streamID, 0, []eventstore.Envelope{env}))

	prod, err := producer.New(s.redpanda.Brokers)
	s.Require().NoError(err)
	defer prod.Close()
	relay := outbox.NewRelay(s.postgres.DB, prod, func(string) string { return topic }, logger)
	relayed, err := relay.RelayBatch(ctx)
	s.Require().NoError(err)
	s.Equal(1, relayed)

	rec := &syncRecomputer{}
	c, err := consumer.New(consumer.Config{
		Brokers: s.redpanda.Brokers,
		Group:   "projector-" + uuid.NewString(),
		Topics:  []string{topic},
	}, New(rec, logger), logger)
	s.Require().NoError(err)
	defer c.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = c.Run(runCtx) }()

	s.Eventually(func() bool { return len(rec.seen()) == 1 }, 30*time.Second, 100*time.Millisecond)
	s.Equal(businessID, rec.seen()[0])
}
