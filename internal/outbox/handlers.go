package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// LoggingHandler writes order events to the log instead of publishing them.
// Used when no Kafka brokers are configured.
type LoggingHandler struct {
	logger logger.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger logger.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// eventSummary is the subset of every event payload the log line shows
type eventSummary struct {
	EventID    string `json:"event_id"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		Status    models.OrderStatus `json:"status"`
		OldStatus models.OrderStatus `json:"old_status"`
		NewStatus models.OrderStatus `json:"new_status"`
		Before    *int               `json:"before"`
		After     *int               `json:"after"`
	} `json:"data"`
}

// HandleMessage logs the event. Payloads that are not JSON are rejected so
// they end up in the dead letter queue like any other undeliverable event.
func (h *LoggingHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	var event eventSummary
	if err := json.Unmarshal(message.Payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal outbox message %d: %w", message.ID, err)
	}

	fields := []interface{}{
		"messageID", message.ID,
		"eventType", message.EventType,
		"aggregateID", message.AggregateID,
		"eventID", event.EventID,
		"occurredAt", event.OccurredAt,
	}

	switch message.EventType {
	case models.EventOrderCreated:
		fields = append(fields, "status", event.Data.Status)
	case models.EventOrderStatusChanged:
		fields = append(fields, "from", event.Data.OldStatus, "to", event.Data.NewStatus)
	case models.EventTrackingEventRecorded:
		// tracking events serialize their stage under "status"
		fields = append(fields, "stage", event.Data.Status)
	case models.EventProductInventoryAdjusted:
		if event.Data.Before != nil && event.Data.After != nil {
			fields = append(fields, "before", *event.Data.Before, "after", *event.Data.After)
		}
	}

	h.logger.Info("Order event", fields...)
	return nil
}
