package repository

import (
	"context"

	"github.com/vaidashi/garment-order-tracker/internal/database"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

const deadLetterColumns = `id, original_message_id, aggregate_type, aggregate_id, event_type, payload,
	error_message, failure_reason, retry_count, last_retry_at, status, created_at, resolved_at`

// DeadLetterRepository handles database operations related to dead letter messages
type DeadLetterRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeadLetterRepository creates a new DeadLetterRepository
func NewDeadLetterRepository(db *database.Database, logger logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new dead letter message
func (r *DeadLetterRepository) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	err := r.db.DB.QueryRowxContext(ctx, `
		INSERT INTO dead_letter_messages (
			original_message_id, aggregate_type, aggregate_id, event_type, payload,
			error_message, failure_reason, retry_count, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		message.OriginalMessageID,
		message.AggregateType,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.ErrorMessage,
		message.FailureReason,
		message.RetryCount,
		message.Status,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		return classify(r.logger, "create dead letter message", err, "originalMessageID", message.OriginalMessageID)
	}
	return nil
}

// GetPendingMessages retrieves pending dead letter messages
func (r *DeadLetterRepository) GetPendingMessages(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	messages := []*models.DeadLetterMessage{}

	err := r.db.DB.SelectContext(ctx, &messages, `
		SELECT `+deadLetterColumns+`
		FROM dead_letter_messages
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		models.DeadLetterStatusPending,
		limit,
	)

	if err != nil {
		return nil, classify(r.logger, "get pending dead letter messages", err)
	}
	return messages, nil
}

// List returns a page of dead letters, optionally filtered by status, with the total count
func (r *DeadLetterRepository) List(ctx context.Context, status models.DeadLetterStatus, limit, offset int) ([]*models.DeadLetterMessage, int, error) {
	var w whereBuilder
	if status != "" {
		w.add("status = ?", status)
	}

	var total int
	if err := r.db.DB.GetContext(ctx, &total, r.db.DB.Rebind(`SELECT COUNT(*) FROM dead_letter_messages`+w.sql()), w.args...); err != nil {
		return nil, 0, classify(r.logger, "count dead letter messages", err)
	}

	query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_messages` + w.sql() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args := append(w.args, normalizeLimit(limit), normalizeOffset(offset))

	messages := []*models.DeadLetterMessage{}
	if err := r.db.DB.SelectContext(ctx, &messages, r.db.DB.Rebind(query), args...); err != nil {
		return nil, 0, classify(r.logger, "list dead letter messages", err)
	}
	return messages, total, nil
}

// MarkAsRetrying marks a message as being retried
func (r *DeadLetterRepository) MarkAsRetrying(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark dead letter message as retrying", id, `
		UPDATE dead_letter_messages
		SET status = $1, retry_count = retry_count + 1, last_retry_at = $2
		WHERE id = $3`,
		models.DeadLetterStatusRetrying, models.GetCurrentTime(), id)
}

// MarkAsResolved marks a message as resolved
func (r *DeadLetterRepository) MarkAsResolved(ctx context.Context, id int64) error {
	return r.exec(ctx, "mark dead letter message as resolved", id, `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = $2
		WHERE id = $3`,
		models.DeadLetterStatusResolved, models.GetCurrentTime(), id)
}

// MarkAsDiscarded marks a message as permanently discarded
func (r *DeadLetterRepository) MarkAsDiscarded(ctx context.Context, id int64, reason string) error {
	return r.exec(ctx, "mark dead letter message as discarded", id, `
		UPDATE dead_letter_messages
		SET status = $1, failure_reason = CONCAT(failure_reason, ' | Discarded: ', $2::text), resolved_at = $3
		WHERE id = $4`,
		models.DeadLetterStatusDiscarded, reason, models.GetCurrentTime(), id)
}

// ResetToRetry puts a retrying or discarded message back in the pending queue
func (r *DeadLetterRepository) ResetToRetry(ctx context.Context, id int64) error {
	return r.exec(ctx, "reset dead letter message to pending", id, `
		UPDATE dead_letter_messages
		SET status = $1, resolved_at = NULL
		WHERE id = $2 AND status IN ($3, $4)`,
		models.DeadLetterStatusPending, id, models.DeadLetterStatusRetrying, models.DeadLetterStatusDiscarded)
}

// GetMessage retrieves a message by ID
func (r *DeadLetterRepository) GetMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	var message models.DeadLetterMessage

	err := r.db.DB.GetContext(ctx, &message, `SELECT `+deadLetterColumns+` FROM dead_letter_messages WHERE id = $1`, id)
	if err != nil {
		return nil, classify(r.logger, "get dead letter message", err, "messageID", id)
	}
	return &message, nil
}

func (r *DeadLetterRepository) exec(ctx context.Context, op string, id int64, query string, args ...interface{}) error {
	result, err := r.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(r.logger, op, err, "messageID", id)
	}
	return requireAffected(result)
}
