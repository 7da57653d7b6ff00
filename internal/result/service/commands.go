package service

import (
	"context"

	"votum/internal/result/models"
	id "votum/pkg/domain"
	audit "votum/pkg/platform/audit"
)

func (s *Service) StartSubmission(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "start_submission",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.StartSubmission(cc)
		},
	})
}

func (s *Service) DefineEntry(ctx context.Context, key Key, def models.EntryDefinition) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "define_entry",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.DefineEntry(cc, def)
		},
	})
}

func (s *Service) EnterCountOfVoters(ctx context.Context, key Key, ballots models.BallotCounts) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "enter_count_of_voters",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.EnterCountOfVoters(cc, ballots)
		},
	})
}

func (s *Service) EnterCandidateResults(ctx context.Context, key Key, entry models.CandidateEntry) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "enter_candidate_results",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.EnterCandidateResults(cc, entry)
		},
	})
}

func (s *Service) EnterBallotGroupResults(ctx context.Context, key Key, groups []models.BallotGroupCount) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "enter_ballot_group_results",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.EnterBallotGroupResults(cc, groups)
		},
	})
}

func (s *Service) ImportElectronicResults(ctx context.Context, key Key, entry models.ElectronicEntry) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "import_electronic_results",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.ImportElectronicResults(cc, entry)
		},
	})
}

func (s *Service) CreateBallotBundle(ctx context.Context, key Key, bundleID id.BallotBundleID, number int) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "create_ballot_bundle",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.CreateBallotBundle(cc, bundleID, number)
		},
	})
}

func (s *Service) SubmitBallotBundle(ctx context.Context, key Key, bundleID id.BallotBundleID, content models.BundleContent) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "submit_ballot_bundle",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.SubmitBallotBundle(cc, bundleID, content)
		},
	})
}

func (s *Service) ReviewBallotBundle(ctx context.Context, key Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "review_ballot_bundle",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.ReviewBallotBundle(cc, bundleID)
		},
	})
}

func (s *Service) RejectBallotBundle(ctx context.Context, key Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "reject_ballot_bundle",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.RejectBallotBundle(cc, bundleID)
		},
	})
}

func (s *Service) DeleteBallotBundle(ctx context.Context, key Key, bundleID id.BallotBundleID) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "delete_ballot_bundle",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.DeleteBallotBundle(cc, bundleID)
		},
	})
}

func (s *Service) FinishSubmission(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "finish_submission",
		auditAction: audit.EventResultSubmissionFinished,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.FinishSubmission(cc)
		},
	})
}

func (s *Service) FlagForCorrection(ctx context.Context, key Key, comment string) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "flag_for_correction",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.FlagForCorrection(cc, comment)
		},
	})
}

func (s *Service) FinishCorrection(ctx context.Context, key Key, comment string) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "finish_correction",
		auditAction: audit.EventResultCorrectionFinished,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.FinishCorrection(cc, comment)
		},
	})
}

func (s *Service) AuditTentatively(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "audit_tentatively",
		auditAction: audit.EventResultAudited,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.AuditTentatively(cc)
		},
	})
}

func (s *Service) Plausibilise(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "plausibilise",
		auditAction: audit.EventResultPlausibilised,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.Plausibilise(cc)
		},
	})
}

func (s *Service) ResetToAuditedTentatively(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name: "reset_to_audited_tentatively",
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.ResetToAuditedTentatively(cc)
		},
	})
}

func (s *Service) ResetToSubmissionFinished(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:           "reset_to_submission_finished",
		auditAction:    audit.EventResultReset,
		checkFinalized: true,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.ResetToSubmissionFinished(cc)
		},
	})
}

func (s *Service) Reset(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "reset",
		auditAction: audit.EventResultReset,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.Reset(cc)
		},
	})
}

func (s *Service) Publish(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "publish",
		auditAction: audit.EventResultPublished,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.Publish(cc)
		},
	})
}

func (s *Service) Unpublish(ctx context.Context, key Key) (*models.CountingCircleResult, error) {
	return s.execute(ctx, key, command{
		name:        "unpublish",
		auditAction: audit.EventResultUnpublished,
		decide: func(r *models.CountingCircleResult, cc models.CommandContext) ([]models.Event, error) {
			return r.Unpublish(cc)
		},
	})
}
