package models

import (
	contestModels "votum/internal/contest/models"
	id "votum/pkg/domain"
)

// UnpublishPolicy decides whether a result leaving the audited milestone,
// by a correction flag or a reset to SubmissionDone, also withdraws its
// publication.
type UnpublishPolicy func(r *CountingCircleResult, s Settings) bool

// Settings are the canton policies a command runs under.
type Settings struct {
	PublishResultsBeforeAuditedTentatively bool
	EnforceDetailedEntry                   bool
	UnpublishOnCorrection                  UnpublishPolicy
}

// DefaultUnpublishOnCorrection withdraws a published result unless the canton
// publishes results before they are audited.
func DefaultUnpublishOnCorrection(r *CountingCircleResult, s Settings) bool {
	return r.Published && !s.PublishResultsBeforeAuditedTentatively
}

// SettingsFrom derives command settings from the canton settings of a contest.
func SettingsFrom(cs contestModels.CantonSettings) Settings {
	return Settings{
		PublishResultsBeforeAuditedTentatively: cs.PublishResultsBeforeAuditedTentatively,
		EnforceDetailedEntry:                   cs.EnforceDetailedEntry,
		UnpublishOnCorrection:                  DefaultUnpublishOnCorrection,
	}
}

func (s Settings) unpublishOnCorrection(r *CountingCircleResult) bool {
	if s.UnpublishOnCorrection == nil {
		return DefaultUnpublishOnCorrection(r, s)
	}
	return s.UnpublishOnCorrection(r, s)
}

// CommandContext carries everything a command is decided against besides
// the result itself.
type CommandContext struct {
	Business      *contestModels.PoliticalBusiness
	ContestLocked bool
	Settings      Settings
	// EndResultFinalized is consulted by commands that leave the done milestone.
	EndResultFinalized bool
	// UserID is recorded on bundle events.
	UserID id.UserID
}
