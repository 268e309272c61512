// Package tracking maintains the append-only production log of each order.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// Reader lists the committed events of an order
type Reader interface {
	ListTrackingEvents(ctx context.Context, orderID string) ([]*models.TrackingEvent, error)
}

// Log appends tracking events. Timestamps of one order never go backwards:
// an event is stamped at least one microsecond after the previous one, so
// ordering by (created_at, id) always matches insertion order.
type Log struct {
	reader Reader
	logger logger.Logger
	now    func() time.Time
}

// NewLog creates a tracking log reading through r
func NewLog(r Reader, log logger.Logger) *Log {
	return &Log{
		reader: r,
		logger: log,
		now:    models.GetCurrentTime,
	}
}

// Append records stage for the order inside tx. The order row must already
// be locked by the caller.
func (l *Log) Append(ctx context.Context, tx repository.Tx, orderID string, stage models.TrackingStage, note, location string) (*models.TrackingEvent, error) {
	at := l.now()

	last, err := tx.LastTrackingEvent(ctx, orderID)
	switch {
	case err == nil:
		if floor := last.CreatedAt.Add(time.Microsecond); at.Before(floor) {
			at = floor
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to read last tracking event of order %s: %w", orderID, err)
	}

	event := models.NewTrackingEvent(orderID, stage, note, location, at)
	if err := tx.AppendTrackingEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append tracking event to order %s: %w", orderID, err)
	}

	l.logger.Debug("Tracking event appended",
		"orderID", orderID,
		"stage", stage,
		"eventID", event.ID)

	return event, nil
}

// List returns the events of the order oldest first
func (l *Log) List(ctx context.Context, orderID string) ([]*models.TrackingEvent, error) {
	events, err := l.reader.ListTrackingEvents(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking events of order %s: %w", orderID, err)
	}
	return events, nil
}
