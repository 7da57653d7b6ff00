package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	contestHandler "votum/internal/contest/handler"
	contestModels "votum/internal/contest/models"
	contestService "votum/internal/contest/service"
	contestStore "votum/internal/contest/store"
	endResultHandler "votum/internal/endresult/handler"
	endResultMetrics "votum/internal/endresult/metrics"
	"votum/internal/endresult/projection"
	endResultService "votum/internal/endresult/service"
	endResultStore "votum/internal/endresult/store"
	jwttoken "votum/internal/jwt_token"
	"votum/internal/platform/config"
	"votum/internal/platform/httpserver"
	"votum/internal/platform/kafka"
	"votum/internal/platform/kafka/consumer"
	"votum/internal/platform/kafka/producer"
	"votum/internal/platform/logger"
	"votum/internal/platform/metrics"
	"votum/internal/platform/outbox"
	"votum/internal/platform/postgres"
	platformRedis "votum/internal/platform/redis"
	resultHandler "votum/internal/result/handler"
	resultMetrics "votum/internal/result/metrics"
	resultModels "votum/internal/result/models"
	resultService "votum/internal/result/service"
	verificationHandler "votum/internal/verification/handler"
	verificationService "votum/internal/verification/service"
	verificationStore "votum/internal/verification/store"
	audit "votum/pkg/platform/audit"
	auditConsumer "votum/pkg/platform/audit/consumer"
	auditPublisher "votum/pkg/platform/audit/publisher"
	auditMemory "votum/pkg/platform/audit/store/memory"
	auditPostgres "votum/pkg/platform/audit/store/postgres"
	"votum/pkg/platform/eventstore"
	eventMemory "votum/pkg/platform/eventstore/memory"
	eventPostgres "votum/pkg/platform/eventstore/postgres"
	authmw "votum/pkg/platform/middleware/auth"
	"votum/pkg/platform/middleware/request"
	"votum/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("votum stopped", "error", err)
		os.Exit(1)
	}
}

// infra holds the storage and messaging a deployment provides.
type infra struct {
	events     eventstore.Store
	contests   contestService.Store
	endResults endResultService.Store
	tokens     verificationService.Store
	audits     audit.Store
	runInTx    func(ctx context.Context, fn func(ctx context.Context) error) error
	workers    []func(ctx context.Context) error
	closers    []func()
	// notifying is set when appends can drive the projector in process.
	notifying *eventMemory.Store
}

func (i *infra) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var (
		inf *infra
		err error
	)
	if cfg.InMemory() {
		inf = inMemory(log)
	} else {
		inf, err = external(ctx, cfg, log)
		if err != nil {
			return err
		}
	}
	defer inf.close()

	contests, err := contestService.New(inf.contests,
		contestService.WithCacheSize(cfg.ContestCacheSize),
		contestService.WithDefaultSettings(contestModels.CantonSettings{
			PublishResultsBeforeAuditedTentatively: cfg.Canton.PublishResultsBeforeAuditedTentatively,
			EnforceDetailedEntry:                   cfg.Canton.EnforceDetailedEntry,
		}),
		contestService.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("contest service: %w", err)
	}

	auditor := auditPublisher.New(inf.audits,
		auditPublisher.WithLogger(log),
		auditPublisher.WithMetrics(auditPublisher.NewMetrics()),
	)
	verifier := verificationService.New(inf.tokens, verificationService.LogSender{Logger: log},
		verificationService.WithTTL(cfg.VerificationTokenTTL),
		verificationService.WithLogger(log),
	)
	endResults := endResultService.New(inf.events, contests, inf.endResults,
		endResultService.WithLogger(log),
		endResultService.WithMetrics(endResultMetrics.New()),
		endResultService.WithAuditPublisher(auditor),
		endResultService.WithVerifier(verifier),
		endResultService.WithTxRunner(inf.runInTx),
	)
	results := resultService.New(inf.events, contests,
		resultService.WithLogger(log),
		resultService.WithMetrics(resultMetrics.New()),
		resultService.WithAuditPublisher(auditor),
		resultService.WithFinalizationChecker(endResults),
		resultService.WithTxRunner(inf.runInTx),
		resultService.WithUnpublishPolicy(resultModels.DefaultUnpublishOnCorrection),
	)
	projector := projection.New(endResults, log)
	if inf.notifying != nil {
		inf.notifying.Subscribe(projector)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		router := auditConsumer.NewRouter(log, nil)
		router.Register(cfg.Kafka.EventsTopic, projector)
		if pgAudits, ok := inf.audits.(*auditPostgres.Store); ok {
			router.Register(cfg.Kafka.AuditTopic, auditConsumer.NewHandler(pgAudits, log))
		}
		c, err := consumer.New(consumer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Group:           cfg.Kafka.Group,
			Topics:          router.Topics(),
			DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		}, router, log)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		inf.closers = append(inf.closers, c.Close)
		inf.workers = append(inf.workers, c.Run)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	httpMetrics := metrics.New()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", metrics.Handler())
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		contestHandler.New(contests, log).Register(r)
		resultHandler.New(results, log).Register(r)
		endResultHandler.New(endResults, log).Register(r)
		verificationHandler.New(verifier, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r, log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting votum", "addr", cfg.Addr, "in_memory", cfg.InMemory())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, work := range inf.workers {
		g.Go(func() error { return work(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("votum stopped")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// inMemory keeps every store in process; end results recompute synchronously
// after each append.
func inMemory(log *slog.Logger) *infra {
	log.Warn("DATABASE_URL not set, running with in-memory stores")
	events := eventMemory.New()
	return &infra{
		events:     events,
		notifying:  events,
		contests:   contestStore.NewInMemory(),
		endResults: endResultStore.NewInMemory(),
		tokens:     verificationStore.NewInMemory(),
		audits:     auditMemory.NewInMemoryStore(),
		runInTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}

// external connects Postgres, Redis and Kafka. Events reach the projector
// through the outbox relay and the events topic.
func external(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when DATABASE_URL is set")
	}
	inf := &infra{}
	ok := false
	defer func() {
		if !ok {
			inf.close()
		}
	}()

	db, err := postgres.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	inf.closers = append(inf.closers, func() { _ = db.Close() })
	pool, err := postgres.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	inf.closers = append(inf.closers, pool.Close)

	inf.events = eventPostgres.New(db)
	inf.contests = contestStore.NewPostgres(pool)
	inf.audits = auditPostgres.New(db)
	inf.runInTx = newPostgresTx(db).RunInTx

	if cfg.Redis.URL != "" {
		client, err := platformRedis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		inf.closers = append(inf.closers, func() { _ = client.Close() })
		inf.endResults = endResultStore.NewRedis(client.Client)
		inf.tokens = verificationStore.NewRedis(client.Client)
	} else {
		log.Warn("REDIS_URL not set, keeping end results and verification tokens in memory")
		inf.endResults = endResultStore.NewInMemory()
		inf.tokens = verificationStore.NewInMemory()
	}

	topics := []kafka.TopicSpec{
		{Name: cfg.Kafka.EventsTopic, Partitions: cfg.Kafka.Partitions, ReplicationFactor: -1},
		{Name: cfg.Kafka.AuditTopic, Partitions: cfg.Kafka.Partitions, ReplicationFactor: -1},
	}
	if cfg.Kafka.DeadLetterTopic != "" {
		topics = append(topics, kafka.TopicSpec{Name: cfg.Kafka.DeadLetterTopic, Partitions: 1, ReplicationFactor: -1})
	}
	if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, topics...); err != nil {
		return nil, fmt.Errorf("ensure kafka topics: %w", err)
	}
	prod, err := producer.New(cfg.Kafka.Brokers)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	inf.closers = append(inf.closers, prod.Close)

	relay := outbox.NewRelay(db, prod, func(aggregateType string) string {
		if aggregateType == auditPostgres.AggregateType {
			return cfg.Kafka.AuditTopic
		}
		return cfg.Kafka.EventsTopic
	}, log, outbox.WithMetrics(outbox.NewMetrics()))
	inf.workers = append(inf.workers, relay.Run)

	ok = true
	return inf, nil
}
