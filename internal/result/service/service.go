// Package service runs counting circle result commands: load the stream,
// fold it, decide, append with the folded version as the expected version.
// Nothing is applied unless the append succeeded.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contestModels "votum/internal/contest/models"
	"votum/internal/result/metrics"
	"votum/internal/result/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	audit "votum/pkg/platform/audit"
	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
	"votum/pkg/requestcontext"
)

// ContestReader supplies the configuration commands are decided against.
type ContestReader interface {
	BusinessWithContest(ctx context.Context, businessID id.PoliticalBusinessID) (*contestModels.PoliticalBusiness, *contestModels.Contest, error)
}

// FinalizationChecker reports whether the end result of a business is
// finalized.
type FinalizationChecker interface {
	IsFinalized(ctx context.Context, businessID id.PoliticalBusinessID) (bool, error)
}

// AuditPublisher records security and compliance relevant actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner runs fn in one transaction so the appended events and the audit
// outbox row commit together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	events       eventstore.Store
	contests     ContestReader
	finalization FinalizationChecker
	auditor      AuditPublisher
	runInTx      TxRunner
	unpublish    models.UnpublishPolicy
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
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

func WithFinalizationChecker(c FinalizationChecker) Option {
	return func(s *Service) { s.finalization = c }
}

func WithTxRunner(run TxRunner) Option {
	return func(s *Service) { s.runInTx = run }
}

// WithUnpublishPolicy replaces the default rule deciding whether a
// correction withdraws a published result.
func WithUnpublishPolicy(p models.UnpublishPolicy) Option {
	return func(s *Service) { s.unpublish = p }
}

func New(events eventstore.Store, contests ContestReader, opts ...Option) *Service {
	s := &Service{
		events:   events,
		contests: contests,
		logger:   slog.Default(),
		tracer:   otel.Tracer("votum/internal/result/service"),
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key identifies one counting circle result.
type Key struct {
	BusinessID id.PoliticalBusinessID
	CircleID   id.CountingCircleID
}

func (k Key) ResultID() id.ResultID {
	return id.NewResultID(k.BusinessID, k.CircleID)
}

type command struct {
	name           string
	auditAction    audit.AuditEvent
	checkFinalized bool
	decide         func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error)
}

// Get folds and returns the current state of a result.
func (s *Service) Get(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	business, _, err := s.contests.BusinessWithContest(ctx, key.BusinessID)
	if err != nil {
		return nil, err
	}
	if !business.HasCountingCircle(key.CircleID) {
		return nil, circleNotFound(key)
	}
	return s.load(ctx, key)
}

// History returns the decoded events of a result stream.
func (s *Service) History(ctx context.Context, key Key) ([]models.Recorded, error) {
	envs, err := s.events.Load(ctx, models.StreamID(key.ResultID()))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load result stream")
	}
	recs, err := models.DecodeAll(envs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "result stream is corrupt")
	}
	return recs, nil
}

func (s *Service) load(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	recs, err := s.History(ctx, key)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStreamLength(len(recs))
	return models.Fold(models.NewCountingCircleResult(key.BusinessID, key.CircleID), recs), nil
}

func (s *Service) execute(ctx context.Context, key Key, cmd command) (result *models.CountingCircleResult, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "result."+cmd.name, trace.WithAttributes(
		attribute.String("political_business_id", key.BusinessID.String()),
		attribute.String("counting_circle_id", key.CircleID.String()),
	))
	defer func() {
		outcome := "applied"
		switch {
		case err == nil:
		case dErrors.HasCode(err, dErrors.CodeVersionConflict):
			outcome = "conflict"
		case dErrors.CodeOf(err) == dErrors.CodeInternal:
			outcome = "failed"
			span.SetStatus(codes.Error, err.Error())
		default:
			outcome = "rejected"
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		s.metrics.IncCommand(cmd.name, outcome)
		s.metrics.ObserveCommand(cmd.name, time.Since(start))
	}()

	business, contest, err := s.contests.BusinessWithContest(ctx, key.BusinessID)
	if err != nil {
		return nil, err
	}
	if !business.HasCountingCircle(key.CircleID) {
		return nil, circleNotFound(key)
	}
	r, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}

	cc := models.CommandContext{
		Business:      business,
		ContestLocked: contest.State.IsLocked(),
		Settings:      models.SettingsFrom(contest.Settings),
		UserID:        requestcontext.UserID(ctx),
	}
	if s.unpublish != nil {
		cc.Settings.UnpublishOnCorrection = s.unpublish
	}
	if cmd.checkFinalized && s.finalization != nil {
		finalized, err := s.finalization.IsFinalized(ctx, key.BusinessID)
		if err != nil {
			return nil, err
		}
		cc.EndResultFinalized = finalized
	}

	events, err := cmd.decide(r, cc)
	if err != nil {
		s.logger.InfoContext(ctx, "result command rejected",
			"command", cmd.name,
			"result_id", r.ID,
			"state", r.State,
			"error", err,
		)
		return nil, err
	}

	envs, err := s.envelopes(ctx, r, events)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode events")
	}
	err = s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.events.Append(ctx, models.StreamID(r.ID), r.Version, envs); err != nil {
			return err
		}
		return s.emitAudit(ctx, cmd, r)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrVersionConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeVersionConflict, "result changed concurrently, retry").
				With("result_id", r.ID).With("version", r.Version)
		}
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append result events")
	}

	for i, e := range events {
		r.Apply(models.Recorded{Version: envs[i].Version, OccurredAt: envs[i].OccurredAt, Event: e})
		s.metrics.IncEvent(e.EventType())
		s.logger.InfoContext(ctx, "result event appended",
			"result_id", r.ID,
			"political_business_id", r.PoliticalBusinessID,
			"event", e.EventType(),
			"version", envs[i].Version,
		)
	}
	return r, nil
}

func (s *Service) envelopes(ctx context.Context, r *models.CountingCircleResult, events []models.Event) ([]eventstore.Envelope, error) {
	meta := eventstore.Metadata{
		RequestID:    requestcontext.RequestID(ctx),
		PartitionKey: r.PoliticalBusinessID.String(),
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
		env, err := eventstore.NewEnvelope(models.StreamID(r.ID), models.AggregateType, r.Version+int64(i)+1, e.EventType(), e, meta, now)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (s *Service) emitAudit(ctx context.Context, cmd command, r *models.CountingCircleResult) error {
	if s.auditor == nil || cmd.auditAction == "" {
		return nil
	}
	return s.auditor.Emit(ctx, audit.Event{
		Action:  string(cmd.auditAction),
		Subject: r.ID.String(),
		Reason:  "from state " + r.State.String(),
	})
}

func circleNotFound(key Key) error {
	return dErrors.New(dErrors.CodeNotFound, "counting circle is not part of the political business").
		With("political_business_id", key.BusinessID).With("counting_circle_id", key.CircleID)
}
