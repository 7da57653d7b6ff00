// Package service serves contest configuration to the result and end result
// services. Reads go through an LRU cache; concurrent misses for the same key
// collapse into one store read.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"votum/internal/contest/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/sentinel"
)

// Store persists contest configuration.
type Store interface {
	SaveContest(ctx context.Context, contest *models.Contest) error
	SaveBusiness(ctx context.Context, business *models.PoliticalBusiness) error
	FindContest(ctx context.Context, contestID id.ContestID) (*models.Contest, error)
	FindBusiness(ctx context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, error)
	ListBusinesses(ctx context.Context) ([]models.PoliticalBusiness, error)
}

// Contest states change during a contest (locking), so contests expire
// quickly. Business definitions are immutable once counting starts.
const defaultContestTTL = 5 * time.Second

type Service struct {
	store      Store
	businesses *lru.Cache[id.PoliticalBusinessID, models.PoliticalBusiness]
	contests   *expirable.LRU[id.ContestID, models.Contest]
	group      singleflight.Group
	validate   *validator.Validate
	defaults   models.CantonSettings
	logger     *slog.Logger
}

type Option func(*serviceConfig)

type serviceConfig struct {
	cacheSize  int
	contestTTL time.Duration
	defaults   models.CantonSettings
	logger     *slog.Logger
}

func WithCacheSize(n int) Option {
	return func(c *serviceConfig) { c.cacheSize = n }
}

func WithContestTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) { c.contestTTL = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithDefaultSettings enables canton policies for every saved contest on top
// of the contest's own settings.
func WithDefaultSettings(defaults models.CantonSettings) Option {
	return func(c *serviceConfig) { c.defaults = defaults }
}

func New(store Store, opts ...Option) (*Service, error) {
	cfg := &serviceConfig{cacheSize: 256, contestTTL: defaultContestTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	businesses, err := lru.New[id.PoliticalBusinessID, models.PoliticalBusiness](cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:      store,
		businesses: businesses,
		contests:   expirable.NewLRU[id.ContestID, models.Contest](cfg.cacheSize, nil, cfg.contestTTL),
		validate:   validator.New(),
		defaults:   cfg.defaults,
		logger:     cfg.logger,
	}, nil
}

func (s *Service) SaveContest(ctx context.Context, contest *models.Contest) error {
	if contest.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "contest id is required")
	}
	if err := s.validate.Struct(contest); err != nil || !contest.State.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid contest state")
	}
	contest.Settings.PublishResultsBeforeAuditedTentatively = contest.Settings.PublishResultsBeforeAuditedTentatively ||
		s.defaults.PublishResultsBeforeAuditedTentatively
	contest.Settings.EnforceDetailedEntry = contest.Settings.EnforceDetailedEntry || s.defaults.EnforceDetailedEntry
	if err := s.store.SaveContest(ctx, contest); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save contest")
	}
	s.contests.Remove(contest.ID)
	s.logger.InfoContext(ctx, "contest saved",
		"contest_id", contest.ID,
		"state", contest.State,
	)
	return nil
}

func (s *Service) SaveBusiness(ctx context.Context, business *models.PoliticalBusiness) error {
	if business.ID.IsNil() || business.ContestID.IsNil() || business.OwnerTenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "business, contest and owner tenant ids are required")
	}
	if err := s.validate.Struct(business); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid political business")
	}
	if err := business.Check(); err != nil {
		return err
	}
	if err := s.store.SaveBusiness(ctx, business); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "contest not found").With("contest_id", business.ContestID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save political business")
	}
	s.businesses.Remove(business.ID)
	s.logger.InfoContext(ctx, "political business saved",
		"political_business_id", business.ID,
		"counting_circles", len(business.CountingCircleIDs),
	)
	return nil
}

func (s *Service) Contest(ctx context.Context, contestID id.ContestID) (*models.Contest, error) {
	if c, ok := s.contests.Get(contestID); ok {
		return &c, nil
	}
	v, err, _ := s.group.Do("contest:"+contestID.String(), func() (any, error) {
		c, err := s.store.FindContest(ctx, contestID)
		if err != nil {
			return nil, err
		}
		s.contests.Add(contestID, *c)
		return *c, nil
	})
	if err != nil {
		return nil, wrapNotFound(err, "contest not found")
	}
	c := v.(models.Contest)
	return &c, nil
}

func (s *Service) Business(ctx context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, error) {
	if b, ok := s.businesses.Get(businessID); ok {
		return &b, nil
	}
	v, err, _ := s.group.Do("business:"+businessID.String(), func() (any, error) {
		b, err := s.store.FindBusiness(ctx, businessID)
		if err != nil {
			return nil, err
		}
		s.businesses.Add(businessID, *b)
		return *b, nil
	})
	if err != nil {
		return nil, wrapNotFound(err, "political business not found")
	}
	b := v.(models.PoliticalBusiness)
	return &b, nil
}

// BusinessWithContest loads a business and the contest it belongs to.
func (s *Service) BusinessWithContest(ctx context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, *models.Contest, error) {
	business, err := s.Business(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}
	contest, err := s.Contest(ctx, business.ContestID)
	if err != nil {
		return nil, nil, err
	}
	return business, contest, nil
}

func (s *Service) ListBusinesses(ctx context.Context) ([]models.PoliticalBusiness, error) {
	businesses, err := s.store.ListBusinesses(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list political businesses")
	}
	return businesses, nil
}

func wrapNotFound(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load configuration")
}
