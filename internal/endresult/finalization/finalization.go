// Package finalization decides whether an end result may be finalized or
// its finalization reverted, and fingerprints the data a verification token
// was issued for.
package finalization

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"votum/internal/endresult/models"
	verification "votum/internal/verification/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %v", err))
	}
	return mode
}

// SnapshotHash fingerprints the end result data, including the version of
// every contributing counting circle result. Flags that flip with the
// finalization itself are left out so a prepared hash still matches when
// the command runs.
func SnapshotHash(er *models.EndResult) (string, error) {
	view := *er
	view.Finalized = false
	view.ReadyForFinalization = false
	view.DecisionsVersion = 0
	raw, err := encMode.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("encode end result snapshot: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Request carries what the caller presents for a finalization or revert.
type Request struct {
	// Owner callers act without second-factor verification.
	Owner   bool
	Tenant  id.TenantID
	Token   *verification.Token
	Now     time.Time
	Current string
}

// CheckPrepareFinalize verifies the end result is complete before a token
// is issued for it.
func CheckPrepareFinalize(er *models.EndResult) error {
	if er.Finalized {
		return dErrors.New(dErrors.CodeInvalidStateTransition, "end result is already finalized").
			With("political_business_id", er.PoliticalBusinessID)
	}
	if !er.AllCountingCirclesDone {
		return dErrors.New(dErrors.CodeCountingCirclesNotDone, "not every counting circle is done").
			With("done", er.CountOfDoneCountingCircles).
			With("total", er.TotalCountOfCountingCircles)
	}
	if open := er.OpenLotDecisions(); open > 0 {
		return dErrors.New(dErrors.CodeOpenLotDecisions, "lot decisions are still open").With("open", open)
	}
	return nil
}

// CheckFinalize runs the completeness checks and, for callers other than
// the owner, the verification checks in that order.
func CheckFinalize(er *models.EndResult, req Request) error {
	if err := CheckPrepareFinalize(er); err != nil {
		return err
	}
	return checkVerification(er.PoliticalBusinessID, verification.ActionFinalize, req)
}

// CheckPrepareRevert requires a finalized end result.
func CheckPrepareRevert(er *models.EndResult) error {
	if !er.Finalized {
		return dErrors.New(dErrors.CodeNotFound, "end result is not finalized").
			With("political_business_id", er.PoliticalBusinessID)
	}
	return nil
}

func CheckRevert(er *models.EndResult, req Request) error {
	if err := CheckPrepareRevert(er); err != nil {
		return err
	}
	return checkVerification(er.PoliticalBusinessID, verification.ActionRevertFinalization, req)
}

func checkVerification(businessID id.PoliticalBusinessID, action verification.Action, req Request) error {
	if req.Owner {
		return nil
	}
	t := req.Token
	switch {
	case t == nil:
		return dErrors.New(dErrors.CodeVerificationRequired, "second-factor verification required").With("action", action)
	case !t.Covers(businessID, action, req.Tenant):
		return dErrors.New(dErrors.CodeVerificationRequired, "token was issued for another action").
			With("token_id", t.ID).With("action", action)
	case t.IsExpired(req.Now):
		return dErrors.New(dErrors.CodeVerificationRequired, "verification token expired").With("token_id", t.ID)
	case !t.Confirmed:
		return dErrors.New(dErrors.CodeNotVerified, "verification token is not confirmed").With("token_id", t.ID)
	case t.SnapshotHash != req.Current:
		return dErrors.New(dErrors.CodeDataChanged, "end result changed since the token was issued").With("token_id", t.ID)
	}
	return nil
}
