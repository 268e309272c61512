// Package handlers consumes published order events and turns them into
// buyer notifications.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// Notification is a message for the buyer of an order
type Notification struct {
	OrderID string
	BuyerID string
	Subject string
	Body    string
}

// Notifier delivers buyer notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notification
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Info("Buyer notification",
		"orderID", note.OrderID,
		"buyerID", note.BuyerID,
		"subject", note.Subject,
		"body", note.Body)
	return nil
}

// envelope is the published event with its data left undecoded
type envelope struct {
	EventType   string          `json:"event_type"`
	EventID     string          `json:"event_id"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// OrderEventsHandler handles order events from Kafka
type OrderEventsHandler struct {
	notifier Notifier
	logger   logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(notifier Notifier, logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// HandleMessage handles incoming order events from Kafka messages
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event envelope

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal message", "error", err, "offset", msg.Offset)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling order event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)

	switch event.EventType {
	case models.EventOrderCreated:
		return h.handleOrderCreated(ctx, event)
	case models.EventOrderStatusChanged:
		return h.handleOrderStatusChanged(ctx, event)
	case models.EventTrackingEventRecorded:
		return h.handleTrackingEventRecorded(ctx, event)
	case models.EventProductInventoryAdjusted:
		return h.handleInventoryAdjusted(event)
	default:
		h.logger.Warn("unknown event type", "eventType", event.EventType)
		return nil
	}
}

func (h *OrderEventsHandler) handleOrderCreated(ctx context.Context, event envelope) error {
	var order models.Order
	if err := decodeData(event, &order); err != nil {
		return err
	}

	return h.notifier.Notify(ctx, Notification{
		OrderID: order.ID,
		BuyerID: order.BuyerID,
		Subject: "Order received",
		Body:    fmt.Sprintf("Your order for %d items (total %s) is awaiting approval.", order.Quantity, order.TotalAmount.StringFixed(2)),
	})
}

func (h *OrderEventsHandler) handleOrderStatusChanged(ctx context.Context, event envelope) error {
	var change models.OrderStatusChange
	if err := decodeData(event, &change); err != nil {
		return err
	}

	h.logger.Info("Order status changed",
		"orderID", change.OrderID,
		"oldStatus", change.OldStatus,
		"newStatus", change.NewStatus,
		"actorRole", change.ActorRole)

	// The buyer already knows about their own cancellations.
	if change.ActorID != "" && change.ActorID == change.BuyerID {
		return nil
	}

	return h.notifier.Notify(ctx, Notification{
		OrderID: change.OrderID,
		BuyerID: change.BuyerID,
		Subject: statusSubject(change.NewStatus),
		Body:    fmt.Sprintf("Your order moved from %s to %s.", change.OldStatus, change.NewStatus),
	})
}

func (h *OrderEventsHandler) handleTrackingEventRecorded(ctx context.Context, event envelope) error {
	var tracked models.TrackingUpdate
	if err := decodeData(event, &tracked); err != nil {
		return err
	}

	body := fmt.Sprintf("Production update: %s.", tracked.Stage)
	if tracked.Location != nil {
		body = fmt.Sprintf("Production update: %s at %s.", tracked.Stage, *tracked.Location)
	}

	return h.notifier.Notify(ctx, Notification{
		OrderID: tracked.OrderID,
		BuyerID: tracked.BuyerID,
		Subject: "Production update",
		Body:    body,
	})
}

func (h *OrderEventsHandler) handleInventoryAdjusted(event envelope) error {
	var adj models.InventoryAdjustment
	if err := decodeData(event, &adj); err != nil {
		return err
	}

	h.logger.Info("Product inventory adjusted",
		"productID", adj.ProductID,
		"before", adj.Before,
		"after", adj.After,
		"reason", adj.Reason)
	return nil
}

func decodeData(event envelope, into interface{}) error {
	if len(event.Data) == 0 {
		return fmt.Errorf("event %s has no data", event.EventID)
	}
	if err := json.Unmarshal(event.Data, into); err != nil {
		return fmt.Errorf("invalid %s data in event %s: %w", event.EventType, event.EventID, err)
	}
	return nil
}

func statusSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusApproved:
		return "Order approved"
	case models.OrderStatusRejected:
		return "Order rejected"
	case models.OrderStatusCancelled:
		return "Order cancelled"
	case models.OrderStatusShipped, models.OrderStatusOutForDelivery:
		return "Order on its way"
	case models.OrderStatusDelivered:
		return "Order delivered"
	default:
		return "Order update"
	}
}
