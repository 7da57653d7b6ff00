// Package models describes second-factor verification tokens. A token binds
// a pending finalization or revert to the end result it was prepared for.
package models

import (
	"time"

	id "votum/pkg/domain"
)

type Action string

const (
	ActionFinalize           Action = "finalize"
	ActionRevertFinalization Action = "revert_finalization"
)

// Token is issued by a prepare command and confirmed out of band with a
// one-time code before the command itself may run.
type Token struct {
	ID           id.VerificationTokenID `json:"id"`
	BusinessID   id.PoliticalBusinessID `json:"political_business_id"`
	TenantID     id.TenantID            `json:"tenant_id"`
	UserID       id.UserID              `json:"user_id"`
	Action       Action                 `json:"action"`
	SnapshotHash string                 `json:"snapshot_hash"`
	// CodeHash is the bcrypt hash of the one-time confirmation code.
	CodeHash    []byte     `json:"code_hash"`
	Confirmed   bool       `json:"confirmed"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Covers reports whether the token was issued for action on business by
// tenant.
func (t *Token) Covers(businessID id.PoliticalBusinessID, action Action, tenantID id.TenantID) bool {
	return t.BusinessID == businessID && t.Action == action && t.TenantID == tenantID
}
