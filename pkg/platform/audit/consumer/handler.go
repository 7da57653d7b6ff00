package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"votum/internal/platform/kafka/consumer"
	id "votum/pkg/domain"
	audit "votum/pkg/platform/audit"
	auditpostgres "votum/pkg/platform/audit/store/postgres"
)

// Store materializes consumed audit events.
type Store interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Handler writes audit events from Kafka into audit_events for querying.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Handle processes one audit record. Malformed records are logged and
// committed; store failures are returned so the consumer retries.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload auditpostgres.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: failed to unmarshal audit payload",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: audit payload without valid id",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	event := audit.Event{
		Category:  audit.EventCategory(payload.Category),
		Subject:   payload.Subject,
		Action:    payload.Action,
		Decision:  payload.Decision,
		Reason:    payload.Reason,
		RequestID: payload.RequestID,
		Timestamp: time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if tenantID, err := id.ParseTenantID(payload.TenantID); err == nil {
		event.TenantID = tenantID
	}
	if userID, err := id.ParseUserID(payload.UserID); err == nil {
		event.UserID = userID
	}

	if err := h.store.AppendWithID(ctx, eventID, event); err != nil {
		return fmt.Errorf("store audit event: %w", err)
	}

	h.logger.DebugContext(ctx, "stored audit event",
		"event_id", eventID,
		"action", event.Action,
		"subject", event.Subject,
	)
	return nil
}
