package service

import (
	"context"
	"fmt"

	"votum/internal/endresult/aggregator"
	"votum/internal/endresult/finalization"
	"votum/internal/endresult/lotdecision"
	"votum/internal/endresult/models"
	verification "votum/internal/verification/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	audit "votum/pkg/platform/audit"
	"votum/pkg/requestcontext"
)

// GetAvailableLotDecisions lists the open and decided tie groups of a freshly
// computed end result. It fails unless lot decisions are enabled.
func (s *Service) GetAvailableLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID) (lotdecision.Available, error) {
	er, err := s.recompute(ctx, businessID, "read")
	if err != nil {
		return lotdecision.Available{}, err
	}
	return lotdecision.AvailableDecisions(er)
}

// UpdateLotDecisions replaces the primary lot decisions.
func (s *Service) UpdateLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID, update models.LotDecisionsUpdated) (*models.EndResult, error) {
	return s.execute(ctx, businessID, command{
		name:        "update_lot_decisions",
		auditAction: audit.EventLotDecisionsUpdated,
		decide: func(_ context.Context, v *view) ([]models.Event, string, error) {
			evaluate := func(agg *models.EndResultAggregate) *models.EndResult {
				return recomputeWith(v, agg)
			}
			if err := lotdecision.ValidatePrimary(v.endResult, v.agg, update, evaluate); err != nil {
				return nil, "", err
			}
			reason := fmt.Sprintf("%d candidate and %d list decisions", len(update.Candidates), len(update.Lists))
			return []models.Event{update}, reason, nil
		},
	})
}

// UpdateSecondaryLotDecisions records decisions for secondary election ties.
func (s *Service) UpdateSecondaryLotDecisions(ctx context.Context, businessID id.PoliticalBusinessID, update models.SecondaryLotDecisionsUpdated) (*models.EndResult, error) {
	return s.execute(ctx, businessID, command{
		name:        "update_secondary_lot_decisions",
		auditAction: audit.EventSecondaryLotDecisionsUpdated,
		decide: func(_ context.Context, v *view) ([]models.Event, string, error) {
			if err := lotdecision.ValidateSecondary(v.endResult, update); err != nil {
				return nil, "", err
			}
			return []models.Event{update}, fmt.Sprintf("%d secondary decisions", len(update.Decisions)), nil
		},
	})
}

// PrepareFinalize issues a verification token bound to the current end
// result. The token must be confirmed before Finalize accepts it.
func (s *Service) PrepareFinalize(ctx context.Context, businessID id.PoliticalBusinessID) (*verification.Token, error) {
	return s.prepare(ctx, businessID, "prepare_finalize", verification.ActionFinalize, finalization.CheckPrepareFinalize)
}

// PrepareRevertFinalization issues a verification token for reverting a
// finalization.
func (s *Service) PrepareRevertFinalization(ctx context.Context, businessID id.PoliticalBusinessID) (*verification.Token, error) {
	return s.prepare(ctx, businessID, "prepare_revert_finalization", verification.ActionRevertFinalization, finalization.CheckPrepareRevert)
}

func (s *Service) prepare(
	ctx context.Context,
	businessID id.PoliticalBusinessID,
	name string,
	action verification.Action,
	check func(er *models.EndResult) error,
) (token *verification.Token, err error) {
	defer func() { s.metrics.IncCommand(name, outcomeOf(err)) }()

	if s.verifier == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "second-factor verification is not configured")
	}
	v, err := s.build(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if v.contest.State.IsLocked() {
		return nil, dErrors.New(dErrors.CodeContestLocked, "contest is locked").With("contest_id", v.contest.ID)
	}
	if err := check(v.endResult); err != nil {
		return nil, err
	}
	hash, err := finalization.SnapshotHash(v.endResult)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fingerprint end result")
	}
	return s.verifier.Issue(ctx, businessID, action, hash)
}

// Finalize freezes the end result. Callers other than the owning tenant
// present a confirmed token issued by PrepareFinalize for unchanged data.
func (s *Service) Finalize(ctx context.Context, businessID id.PoliticalBusinessID, tokenID *id.VerificationTokenID) (*models.EndResult, error) {
	var used *verification.Token
	return s.execute(ctx, businessID, command{
		name:        "finalize",
		auditAction: audit.EventEndResultFinalized,
		decide: func(ctx context.Context, v *view) ([]models.Event, string, error) {
			hash, req, err := s.verificationRequest(ctx, v, tokenID)
			if err != nil {
				return nil, "", err
			}
			if err := finalization.CheckFinalize(v.endResult, req); err != nil {
				return nil, "", err
			}
			used = req.Token
			return []models.Event{models.EndResultFinalized{SnapshotHash: hash}}, "snapshot " + hash, nil
		},
		committed: func(ctx context.Context) { s.consume(ctx, used) },
	})
}

// RevertFinalization reopens a finalized end result.
func (s *Service) RevertFinalization(ctx context.Context, businessID id.PoliticalBusinessID, tokenID *id.VerificationTokenID) (*models.EndResult, error) {
	var used *verification.Token
	return s.execute(ctx, businessID, command{
		name:        "revert_finalization",
		auditAction: audit.EventEndResultFinalizationReverted,
		decide: func(ctx context.Context, v *view) ([]models.Event, string, error) {
			hash, req, err := s.verificationRequest(ctx, v, tokenID)
			if err != nil {
				return nil, "", err
			}
			if err := finalization.CheckRevert(v.endResult, req); err != nil {
				return nil, "", err
			}
			used = req.Token
			return []models.Event{models.EndResultFinalizationReverted{SnapshotHash: hash}}, "snapshot " + hash, nil
		},
		committed: func(ctx context.Context) { s.consume(ctx, used) },
	})
}

func (s *Service) verificationRequest(ctx context.Context, v *view, tokenID *id.VerificationTokenID) (string, finalization.Request, error) {
	hash, err := finalization.SnapshotHash(v.endResult)
	if err != nil {
		return "", finalization.Request{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fingerprint end result")
	}
	tenant := requestcontext.TenantID(ctx)
	req := finalization.Request{
		Owner:   v.business.IsOwner(tenant),
		Tenant:  tenant,
		Now:     requestcontext.Now(ctx),
		Current: hash,
	}
	if tokenID != nil && s.verifier != nil && !req.Owner {
		token, err := s.verifier.Lookup(ctx, *tokenID)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return "", req, err
		}
		req.Token = token
	}
	return hash, req, nil
}

// consume drops a used token. Failures only leave a token behind until it
// expires, so they are logged.
func (s *Service) consume(ctx context.Context, token *verification.Token) {
	if token == nil || s.verifier == nil {
		return
	}
	if err := s.verifier.Consume(ctx, token.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to consume verification token", "token_id", token.ID, "error", err)
	}
}

// recomputeWith evaluates the end result of v under other decisions without
// touching storage.
func recomputeWith(v *view, agg *models.EndResultAggregate) *models.EndResult {
	return aggregator.Compute(v.business, v.snapshots, agg)
}
