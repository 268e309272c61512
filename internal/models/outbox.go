package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types written to the outbox
const (
	EventOrderCreated             = "order_created"
	EventOrderStatusChanged       = "order_status_changed"
	EventTrackingEventRecorded    = "tracking_event_recorded"
	EventProductInventoryAdjusted = "product_inventory_adjusted"
)

// EventTypes lists every event type the services publish
var EventTypes = []string{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventTrackingEventRecorded,
	EventProductInventoryAdjusted,
}

// OutboxMessage represents a message to be published from the outbox table
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent represents the event data in the outbox message
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// OrderStatusChange is the data of an order_status_changed event
type OrderStatusChange struct {
	OrderID   string      `json:"order_id"`
	BuyerID   string      `json:"buyer_id"`
	ManagerID string      `json:"manager_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	ActorID   string      `json:"actor_id"`
	ActorRole Role        `json:"actor_role"`
}

// TrackingUpdate is the data of a tracking_event_recorded event
type TrackingUpdate struct {
	TrackingEvent
	BuyerID string `json:"buyer_id"`
}

// InventoryAdjustment is the data of a product_inventory_adjusted event
type InventoryAdjustment struct {
	ProductID string `json:"product_id"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Reason    string `json:"reason"`
}

func newOutboxMessage(aggregateType, aggregateID, eventType string, data interface{}) (*OutboxMessage, error) {
	now := GetCurrentTime()

	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: aggregateID,
		OccurredAt:  now,
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	return &OutboxMessage{
		AggregateType:      aggregateType,
		AggregateID:        aggregateID,
		EventType:          eventType,
		Payload:            payload,
		CreatedAt:          now,
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates a new order created event
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, EventOrderCreated, order)
}

// NewOrderStatusChangedEvent creates a new event for order status change
func NewOrderStatusChangedEvent(change OrderStatusChange) (*OutboxMessage, error) {
	return newOutboxMessage("order", change.OrderID, EventOrderStatusChanged, change)
}

// NewTrackingEventRecordedEvent creates an event for a production stage record
func NewTrackingEventRecordedEvent(event *TrackingEvent, buyerID string) (*OutboxMessage, error) {
	return newOutboxMessage("order", event.OrderID, EventTrackingEventRecorded, TrackingUpdate{TrackingEvent: *event, BuyerID: buyerID})
}

// NewInventoryAdjustedEvent creates an event for a manual stock adjustment
func NewInventoryAdjustedEvent(adj InventoryAdjustment) (*OutboxMessage, error) {
	return newOutboxMessage("product", adj.ProductID, EventProductInventoryAdjusted, adj)
}
