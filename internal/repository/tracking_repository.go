package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// TrackingRepository handles the append-only tracking_events table
type TrackingRepository struct {
	logger logger.Logger
}

// NewTrackingRepository creates a new TrackingRepository
func NewTrackingRepository(logger logger.Logger) *TrackingRepository {
	return &TrackingRepository{logger: logger}
}

// Append inserts an event and sets its sequence ID
func (r *TrackingRepository) Append(ctx context.Context, q sqlx.ExtContext, event *models.TrackingEvent) error {
	err := sqlx.GetContext(ctx, q, &event.ID,
		`INSERT INTO tracking_events (order_id, status, note, location, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		event.OrderID, event.Stage, event.Note, event.Location, event.CreatedAt)
	if err != nil {
		return classify(r.logger, "append tracking event", err, "orderID", event.OrderID)
	}
	return nil
}

// Last returns the most recent event of an order
func (r *TrackingRepository) Last(ctx context.Context, q sqlx.ExtContext, orderID string) (*models.TrackingEvent, error) {
	var event models.TrackingEvent

	err := sqlx.GetContext(ctx, q, &event,
		`SELECT id, order_id, status, note, location, created_at
		 FROM tracking_events WHERE order_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, orderID)
	if err != nil {
		return nil, classify(r.logger, "get last tracking event", err, "orderID", orderID)
	}
	return &event, nil
}

// List returns the events of an order oldest first
func (r *TrackingRepository) List(ctx context.Context, q sqlx.ExtContext, orderID string) ([]*models.TrackingEvent, error) {
	events := []*models.TrackingEvent{}

	err := sqlx.SelectContext(ctx, q, &events,
		`SELECT id, order_id, status, note, location, created_at
		 FROM tracking_events WHERE order_id = $1
		 ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, classify(r.logger, "list tracking events", err, "orderID", orderID)
	}
	return events, nil
}
