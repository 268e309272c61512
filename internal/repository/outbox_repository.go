package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/vaidashi/garment-order-tracker/internal/database"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload,
	created_at, processed_at, processing_attempts, last_error, status`

// OutboxRepository handles database operations for outbox messages
type OutboxRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *database.Database, logger logger.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
	}
}

// CreateInTx writes an outbox message in the same transaction as the aggregate change
func (r *OutboxRepository) CreateInTx(ctx context.Context, tx *sqlx.Tx, message *models.OutboxMessage) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO outbox_messages (aggregate_type, aggregate_id, event_type, payload, created_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.CreatedAt,
		message.Status,
	).Scan(&message.ID)

	if err != nil {
		return classify(r.logger, "create outbox message", err, "aggregateID", message.AggregateID)
	}
	return nil
}

// GetPendingMessages retrieves pending outbox messages oldest first
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	messages := []*models.OutboxMessage{}

	err := r.db.DB.SelectContext(ctx, &messages, `
		SELECT `+outboxColumns+`
		FROM outbox_messages
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2`,
		models.OutboxStatusPending,
		limit,
	)

	if err != nil {
		return nil, classify(r.logger, "get pending outbox messages", err)
	}
	return messages, nil
}

// GetMessage retrieves an outbox message by ID
func (r *OutboxRepository) GetMessage(ctx context.Context, id int64) (*models.OutboxMessage, error) {
	var message models.OutboxMessage

	err := r.db.DB.GetContext(ctx, &message, `SELECT `+outboxColumns+` FROM outbox_messages WHERE id = $1`, id)
	if err != nil {
		return nil, classify(r.logger, "get outbox message", err, "messageID", id)
	}
	return &message, nil
}

// MarkAsProcessing updates the status of an outbox message to processing
func (r *OutboxRepository) MarkAsProcessing(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark outbox message as processing", id, `
		UPDATE outbox_messages
		SET status = $1, processing_attempts = processing_attempts + 1
		WHERE id = $2`,
		models.OutboxStatusProcessing, id)
}

// MarkAsCompleted updates the status of an outbox message to completed
func (r *OutboxRepository) MarkAsCompleted(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark outbox message as completed", id, `
		UPDATE outbox_messages
		SET status = $1, processed_at = $2, last_error = NULL
		WHERE id = $3`,
		models.OutboxStatusCompleted, models.GetCurrentTime(), id)
}

// MarkAsFailed updates the status of an outbox message to failed
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	return r.exec(ctx, "mark outbox message as failed", id, `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3`,
		models.OutboxStatusFailed, errorMessage, id)
}

// ReleaseForRetry puts a message back to pending after a failed attempt
func (r *OutboxRepository) ReleaseForRetry(ctx context.Context, id int64, errorMessage string) error {
	return r.exec(ctx, "release outbox message for retry", id, `
		UPDATE outbox_messages
		SET status = $1, last_error = $2
		WHERE id = $3`,
		models.OutboxStatusPending, errorMessage, id)
}

// CountByStatus returns the number of messages per status
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[models.OutboxStatus]int, error) {
	var rows []struct {
		Status models.OutboxStatus `db:"status"`
		Count  int                 `db:"count"`
	}

	if err := r.db.DB.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM outbox_messages GROUP BY status`); err != nil {
		return nil, classify(r.logger, "count outbox messages", err)
	}

	counts := make(map[models.OutboxStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *OutboxRepository) exec(ctx context.Context, op string, id int64, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(r.logger, op, err, "messageID", id)
	}
	return requireAffected(result)
}
