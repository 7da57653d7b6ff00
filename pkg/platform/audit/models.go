package audit

import (
	"context"
	"time"

	id "votum/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: finalization,
	// its reversion and recorded lot decisions. They require guaranteed persistence.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine workflow milestones useful for
	// operational visibility.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from services to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	TenantID  id.TenantID
	UserID    id.UserID
	// Subject names the entity acted upon, e.g. a political business or result id.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	// Result lifecycle
	EventResultSubmissionFinished AuditEvent = "result_submission_finished"
	EventResultCorrectionFinished AuditEvent = "result_correction_finished"
	EventResultAudited            AuditEvent = "result_audited_tentatively"
	EventResultPlausibilised      AuditEvent = "result_plausibilised"
	EventResultReset              AuditEvent = "result_reset"
	EventResultPublished          AuditEvent = "result_published"
	EventResultUnpublished        AuditEvent = "result_unpublished"

	// End result
	EventLotDecisionsUpdated           AuditEvent = "lot_decisions_updated"
	EventSecondaryLotDecisionsUpdated  AuditEvent = "secondary_lot_decisions_updated"
	EventEndResultFinalized            AuditEvent = "end_result_finalized"
	EventEndResultFinalizationReverted AuditEvent = "end_result_finalization_reverted"
	EventFinalizationRejected          AuditEvent = "finalization_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventLotDecisionsUpdated:           CategoryCompliance,
	EventSecondaryLotDecisionsUpdated:  CategoryCompliance,
	EventEndResultFinalized:            CategoryCompliance,
	EventEndResultFinalizationReverted: CategoryCompliance,
	EventFinalizationRejected:          CategoryCompliance,
	EventResultReset:                   CategoryCompliance,

	EventResultSubmissionFinished: CategoryOperations,
	EventResultCorrectionFinished: CategoryOperations,
	EventResultAudited:            CategoryOperations,
	EventResultPlausibilised:      CategoryOperations,
	EventResultPublished:          CategoryOperations,
	EventResultUnpublished:        CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
