package repository

import (
	"context"
	"sort"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

// MemoryOutbox exposes the outbox rows committed through a MemoryStore
type MemoryOutbox struct {
	store *MemoryStore
}

// Outbox returns the outbox view of the store
func (s *MemoryStore) Outbox() *MemoryOutbox {
	return &MemoryOutbox{store: s}
}

func (o *MemoryOutbox) update(ctx context.Context, id int64, fn func(m *models.OutboxMessage)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	existing, ok := o.store.state.outbox[id]
	if !ok {
		return ErrNotFound
	}
	updated := copyOutbox(existing)
	fn(updated)
	o.store.state.outbox[id] = updated
	return nil
}

// GetPendingMessages returns pending messages oldest first
func (o *MemoryOutbox) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	return o.list(ctx, models.OutboxStatusPending, limit)
}

// All returns every message regardless of status, oldest first
func (o *MemoryOutbox) All(ctx context.Context) ([]*models.OutboxMessage, error) {
	return o.list(ctx, "", 0)
}

func (o *MemoryOutbox) list(ctx context.Context, status models.OutboxStatus, limit int) ([]*models.OutboxMessage, error) {
	messages := []*models.OutboxMessage{}

	err := o.store.read(ctx, func(st *memState) error {
		for _, m := range st.outbox {
			if status == "" || m.Status == status {
				messages = append(messages, copyOutbox(m))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	if limit > 0 && limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, nil
}

func (o *MemoryOutbox) GetMessage(ctx context.Context, id int64) (*models.OutboxMessage, error) {
	var found *models.OutboxMessage

	err := o.store.read(ctx, func(st *memState) error {
		m, ok := st.outbox[id]
		if !ok {
			return ErrNotFound
		}
		found = copyOutbox(m)
		return nil
	})
	return found, err
}

func (o *MemoryOutbox) MarkAsProcessing(ctx context.Context, id int64) error {
	return o.update(ctx, id, func(m *models.OutboxMessage) {
		m.Status = models.OutboxStatusProcessing
		m.ProcessingAttempts++
	})
}

func (o *MemoryOutbox) MarkAsCompleted(ctx context.Context, id int64) error {
	return o.update(ctx, id, func(m *models.OutboxMessage) {
		now := models.GetCurrentTime()
		m.Status = models.OutboxStatusCompleted
		m.ProcessedAt = &now
		m.LastError = nil
	})
}

func (o *MemoryOutbox) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	return o.update(ctx, id, func(m *models.OutboxMessage) {
		m.Status = models.OutboxStatusFailed
		m.LastError = &errorMessage
	})
}

func (o *MemoryOutbox) ReleaseForRetry(ctx context.Context, id int64, errorMessage string) error {
	return o.update(ctx, id, func(m *models.OutboxMessage) {
		m.Status = models.OutboxStatusPending
		m.LastError = &errorMessage
	})
}

func (o *MemoryOutbox) CountByStatus(ctx context.Context) (map[models.OutboxStatus]int, error) {
	counts := make(map[models.OutboxStatus]int)

	err := o.store.read(ctx, func(st *memState) error {
		for _, m := range st.outbox {
			counts[m.Status]++
		}
		return nil
	})
	return counts, err
}

// MemoryDeadLetters keeps dead letters alongside a MemoryStore
type MemoryDeadLetters struct {
	store *MemoryStore
}

// DeadLetters returns the dead letter view of the store
func (s *MemoryStore) DeadLetters() *MemoryDeadLetters {
	return &MemoryDeadLetters{store: s}
}

func (d *MemoryDeadLetters) update(ctx context.Context, id int64, fn func(m *models.DeadLetterMessage) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	existing, ok := d.store.state.deadLetters[id]
	if !ok {
		return ErrNotFound
	}
	updated := copyDeadLetter(existing)
	if !fn(updated) {
		return ErrNotFound
	}
	d.store.state.deadLetters[id] = updated
	return nil
}

func (d *MemoryDeadLetters) Create(ctx context.Context, message *models.DeadLetterMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	d.store.state.nextDeadLetterID++
	message.ID = d.store.state.nextDeadLetterID
	d.store.state.deadLetters[message.ID] = copyDeadLetter(message)
	return nil
}

func (d *MemoryDeadLetters) GetPendingMessages(ctx context.Context, limit int) ([]*models.DeadLetterMessage, error) {
	messages, _, err := d.List(ctx, models.DeadLetterStatusPending, 0, 0)
	if err != nil {
		return nil, err
	}

	// oldest first, unlike List
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	if limit > 0 && limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, nil
}

func (d *MemoryDeadLetters) List(ctx context.Context, status models.DeadLetterStatus, limit, offset int) ([]*models.DeadLetterMessage, int, error) {
	messages := []*models.DeadLetterMessage{}

	err := d.store.read(ctx, func(st *memState) error {
		for _, m := range st.deadLetters {
			if status == "" || m.Status == status {
				messages = append(messages, copyDeadLetter(m))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID > messages[j].ID })
	total := len(messages)
	if limit == 0 && offset == 0 {
		return messages, total, nil
	}
	return page(messages, limit, offset), total, nil
}

func (d *MemoryDeadLetters) GetMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	var found *models.DeadLetterMessage

	err := d.store.read(ctx, func(st *memState) error {
		m, ok := st.deadLetters[id]
		if !ok {
			return ErrNotFound
		}
		found = copyDeadLetter(m)
		return nil
	})
	return found, err
}

func (d *MemoryDeadLetters) MarkAsRetrying(ctx context.Context, id int64) error {
	return d.update(ctx, id, func(m *models.DeadLetterMessage) bool {
		now := models.GetCurrentTime()
		m.Status = models.DeadLetterStatusRetrying
		m.RetryCount++
		m.LastRetryAt = &now
		return true
	})
}

func (d *MemoryDeadLetters) MarkAsResolved(ctx context.Context, id int64) error {
	return d.update(ctx, id, func(m *models.DeadLetterMessage) bool {
		now := models.GetCurrentTime()
		m.Status = models.DeadLetterStatusResolved
		m.ResolvedAt = &now
		return true
	})
}

func (d *MemoryDeadLetters) MarkAsDiscarded(ctx context.Context, id int64, reason string) error {
	return d.update(ctx, id, func(m *models.DeadLetterMessage) bool {
		now := models.GetCurrentTime()
		m.Status = models.DeadLetterStatusDiscarded
		m.FailureReason = m.FailureReason + " | Discarded: " + reason
		m.ResolvedAt = &now
		return true
	})
}

func (d *MemoryDeadLetters) ResetToRetry(ctx context.Context, id int64) error {
	return d.update(ctx, id, func(m *models.DeadLetterMessage) bool {
		if m.Status != models.DeadLetterStatusRetrying && m.Status != models.DeadLetterStatusDiscarded {
			return false
		}
		m.Status = models.DeadLetterStatusPending
		m.ResolvedAt = nil
		return true
	})
}

var (
	_ OutboxStore     = (*MemoryOutbox)(nil)
	_ DeadLetterStore = (*MemoryDeadLetters)(nil)
)
