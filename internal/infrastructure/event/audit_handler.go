package event

import (
	"context"

	"github.com/housing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes every registered lifecycle event to the log
type AuditHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditHandler creates an AuditHandler for the types known to serializer
func NewAuditHandler(serializer *EventSerializer, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{serializer: serializer, logger: logger.Named("audit")}
}

// EventTypes returns the registered event types
func (h *AuditHandler) EventTypes() []string {
	return h.serializer.RegisteredTypes()
}

// Handle logs the event with its JSON payload
func (h *AuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.String("payload", string(payload)))
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
