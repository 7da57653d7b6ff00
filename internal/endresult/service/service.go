//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ContestReader,Verifier,AuditPublisher

// Package service recomputes end results and runs the commands recorded on
// the end result stream: lot decisions, finalization and its reversion.
//
// End results are projections. A recompute loads every counting circle
// result of the business, folds them and runs the pure aggregator; nothing
// is cached between recomputes except the stored output.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	contestModels "votum/internal/contest/models"
	"votum/internal/endresult/aggregator"
	"votum/internal/endresult/metrics"
	"votum/internal/endresult/models"
	resultModels "votum/internal/result/models"
	verification "votum/internal/verification/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	audit "votum/pkg/platform/audit"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
	"votum/pkg/requestcontext"
)

// ContestReader supplies the business configuration and the contest lock.
type ContestReader interface {
	BusinessWithContest(ctx context.Context, businessID id.PoliticalBusinessID) (*contestModels.PoliticalBusiness, *contestModels.Contest, error)
}

// Store keeps the latest computed end result.
type Store interface {
	Save(ctx context.Context, er *models.EndResult) error
	Get(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error)
}

// Verifier issues and checks second-factor tokens.
type Verifier interface {
	Issue(ctx context.Context, businessID id.PoliticalBusinessID, action verification.Action, snapshotHash string) (*verification.Token, error)
	Lookup(ctx context.Context, tokenID id.VerificationTokenID) (*verification.Token, error)
	Consume(ctx context.Context, tokenID id.VerificationTokenID) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner runs fn in one transaction so the appended events and the audit
// outbox row commit together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

const defaultLoadConcurrency = 8

type Service struct {
	events    eventstore.Store
	contests  ContestReader
	results   Store
	verifier  Verifier
	auditor   AuditPublisher
	runInTx   TxRunner
	loadLimit int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithVerifier(v Verifier) Option {
	return func(s *Service) { s.verifier = v }
}

func WithTxRunner(run TxRunner) Option {
	return func(s *Service) { s.runInTx = run }
}

// WithLoadConcurrency bounds how many result streams load in parallel.
func WithLoadConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.loadLimit = n
		}
	}
}

func New(events eventstore.Store, contests ContestReader, results Store, opts ...Option) *Service {
	s := &Service{
		events:    events,
		contests:  contests,
		results:   results,
		loadLimit: defaultLoadConcurrency,
		logger:    slog.Default(),
		tracer:    otel.Tracer("votum/internal/endresult/service"),
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// view is everything a command or recompute is decided against.
type view struct {
	business  *contestModels.PoliticalBusiness
	contest   *contestModels.Contest
	snapshots []*resultModels.CountingCircleResult
	agg       *models.EndResultAggregate
	endResult *models.EndResult
}

func (s *Service) build(ctx context.Context, businessID id.PoliticalBusinessID) (*view, error) {
	business, contest, err := s.contests.BusinessWithContest(ctx, businessID)
	if err != nil {
		return nil, err
	}

	var (
		snapshots []*resultModels.CountingCircleResult
		agg       *models.EndResultAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshots, err = s.loadSnapshots(gctx, business)
		return err
	})
	g.Go(func() error {
		var err error
		agg, err = s.loadAggregate(gctx, businessID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &view{
		business:  business,
		contest:   contest,
		snapshots: snapshots,
		agg:       agg,
		endResult: aggregator.Compute(business, snapshots, agg),
	}, nil
}

// loadSnapshots folds the result stream of every counting circle of the
// business, a bounded number at a time.
func (s *Service) loadSnapshots(ctx context.Context, business *contestModels.PoliticalBusiness) ([]*resultModels.CountingCircleResult, error) {
	snapshots := make([]*resultModels.CountingCircleResult, len(business.CountingCircleIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.loadLimit)
	for i, circleID := range business.CountingCircleIDs {
		g.Go(func() error {
			resultID := id.NewResultID(business.ID, circleID)
			envs, err := s.events.Load(gctx, resultModels.StreamID(resultID))
			if err != nil {
				return fmt.Errorf("load result %s: %w", resultID, err)
			}
			recs, err := resultModels.DecodeAll(envs)
			if err != nil {
				return err
			}
			snapshots[i] = resultModels.Fold(resultModels.NewCountingCircleResult(business.ID, circleID), recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load counting circle results")
	}
	return snapshots, nil
}

func (s *Service) loadAggregate(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResultAggregate, error) {
	envs, err := s.events.Load(ctx, models.StreamID(businessID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load end result stream")
	}
	agg, err := models.FoldAggregate(businessID, envs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "end result stream is corrupt")
	}
	return agg, nil
}

// Recompute rebuilds and stores the end result of a business.
func (s *Service) Recompute(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
	return s.recompute(ctx, businessID, "event")
}

func (s *Service) recompute(ctx context.Context, businessID id.PoliticalBusinessID, trigger string) (er *models.EndResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "endresult.recompute", trace.WithAttributes(
		attribute.String("political_business_id", businessID.String()),
		attribute.String("trigger", trigger),
	))
	defer func() {
		outcome := "stored"
		if err != nil {
			outcome = "failed"
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.IncRecompute(trigger, outcome)
		s.metrics.ObserveRecompute(time.Since(start))
	}()

	v, err := s.build(ctx, businessID)
	if err != nil {
		return nil, err
	}
	er = v.endResult
	if err := s.results.Save(ctx, er); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store end result")
	}
	open := er.OpenLotDecisions()
	s.metrics.SetOpenLotDecisions(businessID.String(), open)
	span.SetAttributes(
		attribute.Int("done_counting_circles", er.CountOfDoneCountingCircles),
		attribute.Int("open_lot_decisions", open),
	)
	s.logger.DebugContext(ctx, "end result recomputed",
		"political_business_id", businessID,
		"trigger", trigger,
		"done", er.CountOfDoneCountingCircles,
		"total", er.TotalCountOfCountingCircles,
		"open_lot_decisions", open,
	)
	return er, nil
}

// Get returns the stored end result, computing it on first access.
func (s *Service) Get(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
	er, err := s.results.Get(ctx, businessID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.recompute(ctx, businessID, "read")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read end result")
	}
	return er, nil
}

// IsFinalized reports whether the end result of a business is finalized.
func (s *Service) IsFinalized(ctx context.Context, businessID id.PoliticalBusinessID) (bool, error) {
	agg, err := s.loadAggregate(ctx, businessID)
	if err != nil {
		return false, err
	}
	return agg.Finalized, nil
}

// History returns the raw end result stream, for inspection tools.
func (s *Service) History(ctx context.Context, businessID id.PoliticalBusinessID) ([]eventstore.Envelope, error) {
	envs, err := s.events.Load(ctx, models.StreamID(businessID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load end result stream")
	}
	return envs, nil
}

type command struct {
	name        string
	auditAction audit.AuditEvent
	decide      func(ctx context.Context, v *view) ([]models.Event, string, error)
	// committed runs after a successful append.
	committed func(ctx context.Context)
}

func (s *Service) execute(ctx context.Context, businessID id.PoliticalBusinessID, cmd command) (er *models.EndResult, err error) {
	ctx, span := s.tracer.Start(ctx, "endresult."+cmd.name, trace.WithAttributes(
		attribute.String("political_business_id", businessID.String()),
	))
	defer func() {
		outcome := outcomeOf(err)
		if outcome == "failed" {
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		s.metrics.IncCommand(cmd.name, outcome)
	}()

	v, err := s.build(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if v.contest.State.IsLocked() {
		return nil, dErrors.New(dErrors.CodeContestLocked, "contest is locked").
			With("contest_id", v.contest.ID).With("state", v.contest.State)
	}

	events, reason, err := cmd.decide(ctx, v)
	if err != nil {
		s.logger.InfoContext(ctx, "end result command rejected",
			"command", cmd.name,
			"political_business_id", businessID,
			"error", err,
		)
		s.auditRejection(ctx, cmd, businessID, err)
		return nil, err
	}

	envs, err := s.envelopes(ctx, v.agg, events)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode events")
	}
	err = s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.events.Append(ctx, models.StreamID(businessID), v.agg.Version, envs); err != nil {
			return err
		}
		return s.emit(ctx, cmd.auditAction, businessID, "", reason)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrVersionConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeVersionConflict, "end result changed concurrently, retry").
				With("political_business_id", businessID).With("version", v.agg.Version)
		}
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append end result events")
	}

	for i, e := range events {
		s.logger.InfoContext(ctx, "end result event appended",
			"political_business_id", businessID,
			"event", e.EventType(),
			"version", envs[i].Version,
		)
	}
	if cmd.committed != nil {
		cmd.committed(ctx)
	}
	return s.recompute(ctx, businessID, "command")
}

func (s *Service) envelopes(ctx context.Context, agg *models.EndResultAggregate, events []models.Event) ([]eventstore.Envelope, error) {
	meta := eventstore.Metadata{
		RequestID:    requestcontext.RequestID(ctx),
		PartitionKey: agg.PoliticalBusinessID.String(),
	}
	if tenantID := requestcontext.TenantID(ctx); !tenantID.IsNil() {
		meta.TenantID = tenantID.String()
	}
	if userID := requestcontext.UserID(ctx); !userID.IsNil() {
		meta.UserID = userID.String()
	}
	now := requestcontext.Now(ctx)

	envs := make([]eventstore.Envelope, 0, len(events))
	for i, e := range events {
		env, err := eventstore.NewEnvelope(models.StreamID(agg.PoliticalBusinessID), models.AggregateType, agg.Version+int64(i)+1, e.EventType(), e, meta, now)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, businessID id.PoliticalBusinessID, decision, reason string) error {
	if s.auditor == nil || action == "" {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:   string(action),
		Subject:  businessID.String(),
		Decision: decision,
		Reason:   reason,
	})
}

// auditRejection records refused finalization attempts that failed the
// second-factor checks.
func (s *Service) auditRejection(ctx context.Context, cmd command, businessID id.PoliticalBusinessID, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeVerificationRequired, dErrors.CodeNotVerified, dErrors.CodeDataChanged:
	default:
		return
	}
	if emitErr := s.emit(ctx, audit.EventFinalizationRejected, businessID, "denied", cmd.name+": "+string(dErrors.CodeOf(err))); emitErr != nil {
		s.logger.ErrorContext(ctx, "failed to audit rejected finalization",
			"political_business_id", businessID,
			"error", emitErr,
		)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "applied"
	case dErrors.HasCode(err, dErrors.CodeVersionConflict):
		return "conflict"
	case dErrors.CodeOf(err) == dErrors.CodeInternal:
		return "failed"
	default:
		return "rejected"
	}
}
