package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votum/internal/verification/models"
	"votum/internal/verification/service"
	"votum/internal/verification/store"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/requestcontext"
)

// capturingSender keeps the last code so tests can confirm with it.
type capturingSender struct {
	code string
}

func (c *capturingSender) Send(_ context.Context, _ *models.Token, code string) error {
	c.code = code
	return nil
}

type VerificationSuite struct {
	suite.Suite
	ctx      context.Context
	sender   *capturingSender
	service  *service.Service
	business id.PoliticalBusinessID
}

func TestVerificationSuite(t *testing.T) {
	suite.Run(t, new(VerificationSuite))
}

func (s *VerificationSuite) SetupTest() {
	s.ctx = requestcontext.WithTenantID(context.Background(), id.TenantID(uuid.New()))
	s.sender = &capturingSender{}
	s.service = service.New(store.NewInMemory(), s.sender, service.WithTTL(time.Minute))
	s.business = id.PoliticalBusinessID(uuid.New())
}

func (s *VerificationSuite) TestIssueAndConfirm() {
	token, err := s.service.Issue(s.ctx, s.business, models.ActionFinalize, "hash-1")
	s.Require().NoError(err)
	s.False(token.Confirmed)
	s.Len(s.sender.code, 6)
	s.True(token.Covers(s.business, models.ActionFinalize, requestcontext.TenantID(s.ctx)))

	confirmed, err := s.service.Confirm(s.ctx, token.ID, s.sender.code)
	s.Require().NoError(err)
	s.True(confirmed.Confirmed)

	stored, err := s.service.Lookup(s.ctx, token.ID)
	s.Require().NoError(err)
	s.True(stored.Confirmed)
	s.Equal("hash-1", stored.SnapshotHash)
}

func (s *VerificationSuite) TestConfirmRejectsWrongCode() {
	token, err := s.service.Issue(s.ctx, s.business, models.ActionFinalize, "hash-1")
	s.Require().NoError(err)

	wrong := "000000"
	if s.sender.code == wrong {
		wrong = "111111"
	}
	_, err = s.service.Confirm(s.ctx, token.ID, wrong)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	stored, err := s.service.Lookup(s.ctx, token.ID)
	s.Require().NoError(err)
	s.False(stored.Confirmed)
}

func (s *VerificationSuite) TestConfirmRejectsOtherTenant() {
	token, err := s.service.Issue(s.ctx, s.business, models.ActionRevertFinalization, "hash-1")
	s.Require().NoError(err)

	other := requestcontext.WithTenantID(context.Background(), id.TenantID(uuid.New()))
	_, err = s.service.Confirm(other, token.ID, s.sender.code)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *VerificationSuite) TestConsumedTokenIsGone() {
	token, err := s.service.Issue(s.ctx, s.business, models.ActionFinalize, "hash-1")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Consume(s.ctx, token.ID))

	_, err = s.service.Lookup(s.ctx, token.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VerificationSuite) TestExpiredTokenIsGone() {
	past := requestcontext.WithTime(s.ctx, time.Now().Add(-2*time.Minute))
	token, err := s.service.Issue(past, s.business, models.ActionFinalize, "hash-1")
	s.Require().NoError(err)

	_, err = s.service.Lookup(s.ctx, token.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
