// Package service issues and confirms second-factor verification tokens.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"votum/internal/verification/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/sentinel"
	"votum/pkg/requestcontext"
)

type Store interface {
	Save(ctx context.Context, token *models.Token) error
	Find(ctx context.Context, tokenID id.VerificationTokenID) (*models.Token, error)
	Confirm(ctx context.Context, tokenID id.VerificationTokenID, at time.Time) error
	Delete(ctx context.Context, tokenID id.VerificationTokenID) error
}

// CodeSender delivers the one-time code over a second channel.
type CodeSender interface {
	Send(ctx context.Context, token *models.Token, code string) error
}

// LogSender writes codes to the log. It is meant for development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, token *models.Token, code string) error {
	s.Logger.WarnContext(ctx, "verification code issued",
		"token_id", token.ID,
		"action", token.Action,
		"code", code,
	)
	return nil
}

const codeDigits = 6

type Service struct {
	store  Store
	sender CodeSender
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, sender CodeSender, opts ...Option) *Service {
	s := &Service{
		store:  store,
		sender: sender,
		ttl:    10 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates an unconfirmed token for action on business bound to the
// snapshot hash of the end result the caller saw.
func (s *Service) Issue(ctx context.Context, businessID id.PoliticalBusinessID, action models.Action, snapshotHash string) (*models.Token, error) {
	code, err := newCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash verification code")
	}

	now := requestcontext.Now(ctx)
	token := &models.Token{
		ID:           id.VerificationTokenID(uuid.New()),
		BusinessID:   businessID,
		TenantID:     requestcontext.TenantID(ctx),
		UserID:       requestcontext.UserID(ctx),
		Action:       action,
		SnapshotHash: snapshotHash,
		CodeHash:     hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification token")
	}
	if err := s.sender.Send(ctx, token, code); err != nil {
		_ = s.store.Delete(ctx, token.ID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver verification code")
	}
	s.logger.InfoContext(ctx, "verification token issued",
		"token_id", token.ID,
		"political_business_id", businessID,
		"action", action,
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// Confirm checks the one-time code and marks the token confirmed. Only the
// tenant the token was issued to may confirm it.
func (s *Service) Confirm(ctx context.Context, tokenID id.VerificationTokenID, code string) (*models.Token, error) {
	token, err := s.Lookup(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.TenantID != requestcontext.TenantID(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "token was issued to another tenant").With("token_id", tokenID)
	}
	if bcrypt.CompareHashAndPassword(token.CodeHash, []byte(code)) != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "verification code does not match").With("token_id", tokenID)
	}
	now := requestcontext.Now(ctx)
	if err := s.store.Confirm(ctx, tokenID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, tokenNotFound(tokenID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm verification token")
	}
	token.Confirmed = true
	token.ConfirmedAt = &now
	s.logger.InfoContext(ctx, "verification token confirmed", "token_id", tokenID, "action", token.Action)
	return token, nil
}

// Lookup returns a live token.
func (s *Service) Lookup(ctx context.Context, tokenID id.VerificationTokenID) (*models.Token, error) {
	token, err := s.store.Find(ctx, tokenID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, tokenNotFound(tokenID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification token")
	}
	return token, nil
}

// Consume removes a token after the command it verified ran.
func (s *Service) Consume(ctx context.Context, tokenID id.VerificationTokenID) error {
	if err := s.store.Delete(ctx, tokenID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume verification token")
	}
	return nil
}

func tokenNotFound(tokenID id.VerificationTokenID) error {
	return dErrors.New(dErrors.CodeNotFound, "verification token not found or expired").With("token_id", tokenID)
}

func newCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
