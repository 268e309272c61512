package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/retry"
)

// DeadLetterProcessor replays dead letter messages through the outbox handlers
type DeadLetterProcessor struct {
	deadLetters     repository.DeadLetterStore
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	backoffStrategy retry.BackoffStrategy
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// DeadLetterProcessorConfig holds the configuration for the DeadLetterProcessor
type DeadLetterProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
	BackoffStrategy retry.BackoffStrategy
}

// NewDeadLetterProcessor creates a new dead letter processor
func NewDeadLetterProcessor(
	deadLetters repository.DeadLetterStore,
	logger logger.Logger,
	config *DeadLetterProcessorConfig,
) *DeadLetterProcessor {
	ctx, cancel := context.WithCancel(context.Background())

	backoffStrategy := config.BackoffStrategy
	if backoffStrategy == nil {
		backoffStrategy = retry.NewDefaultExponentialBackoff()
	}

	maxRetries := config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &DeadLetterProcessor{
		deadLetters:     deadLetters,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      maxRetries,
		backoffStrategy: backoffStrategy,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *DeadLetterProcessor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the dead letter processor
func (p *DeadLetterProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.processDLQ()
	}()

	p.logger.Info("Dead letter processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize,
		"maxRetries", p.maxRetries)
}

// Stop stops the dead letter processor
func (p *DeadLetterProcessor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Dead letter processor stopped")
}

func (p *DeadLetterProcessor) processDLQ() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(p.ctx); err != nil {
				p.logger.Error("Failed to process dead letter batch", "error", err)
			}
		}
	}
}

// ProcessBatch replays one batch of pending dead letters and returns how
// many were resolved
func (p *DeadLetterProcessor) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := p.deadLetters.GetPendingMessages(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending messages in dead letter queue")
		return 0, nil
	}

	p.logger.Info("Processing batch of dead letter messages", "count", len(messages))

	resolved := 0
	for _, msg := range messages {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Error("Failed to process dead letter message",
				"error", err,
				"messageID", msg.ID,
				"aggregateID", msg.AggregateID,
				"eventType", msg.EventType,
				"retryCount", msg.RetryCount)
			continue
		}
		resolved++
	}

	return resolved, nil
}

// RetryMessage replays one dead letter now. Discarded messages are revived;
// resolved ones are left alone.
func (p *DeadLetterProcessor) RetryMessage(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	msg, err := p.get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch msg.Status {
	case models.DeadLetterStatusResolved:
		return nil, apperrors.NewConflictError("dead letter message is already resolved").WithContext("id", id)
	case models.DeadLetterStatusDiscarded, models.DeadLetterStatusRetrying:
		if err := p.deadLetters.ResetToRetry(ctx, id); err != nil {
			return nil, apperrors.NewInternalError("failed to reset dead letter message").WithCause(err)
		}
	}

	if err := p.processMessage(ctx, msg); err != nil {
		return nil, apperrors.NewTemporaryError("retry failed: " + err.Error()).WithCause(err)
	}

	return p.get(ctx, id)
}

// DiscardMessage gives up on a dead letter without replaying it
func (p *DeadLetterProcessor) DiscardMessage(ctx context.Context, id int64, reason string) (*models.DeadLetterMessage, error) {
	msg, err := p.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.Status == models.DeadLetterStatusResolved {
		return nil, apperrors.NewConflictError("dead letter message is already resolved").WithContext("id", id)
	}

	if reason == "" {
		reason = "discarded by admin"
	}
	if err := p.deadLetters.MarkAsDiscarded(ctx, id, reason); err != nil {
		return nil, apperrors.NewInternalError("failed to discard dead letter message").WithCause(err)
	}

	p.logger.Info("Dead letter message discarded", "messageID", id, "reason", reason)
	return p.get(ctx, id)
}

func (p *DeadLetterProcessor) get(ctx context.Context, id int64) (*models.DeadLetterMessage, error) {
	msg, err := p.deadLetters.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("dead letter message %d not found", id)).WithContext("id", id)
		}
		return nil, apperrors.NewInternalError("failed to load dead letter message").WithCause(err)
	}
	return msg, nil
}

func (p *DeadLetterProcessor) processMessage(ctx context.Context, msg *models.DeadLetterMessage) error {
	if err := p.deadLetters.MarkAsRetrying(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as retrying: %w", err)
	}

	handler, exists := p.handlers[msg.EventType]
	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type %s", msg.EventType)
		p.logger.Error(errorMsg, "messageID", msg.ID)

		if err := p.deadLetters.MarkAsDiscarded(ctx, msg.ID, "No handler available"); err != nil {
			p.logger.Error("Failed to mark message as discarded", "error", err, "messageID", msg.ID)
		}
		return fmt.Errorf("%s", errorMsg)
	}

	outboxMsg := msg.ToOutboxMessage()

	retryConfig := &retry.RetryConfig{
		MaxAttempts:     p.maxRetries,
		BackoffStrategy: p.backoffStrategy,
		Logger:          p.logger,
	}

	retryFunc := func() error {
		return handler.HandleMessage(ctx, outboxMsg)
	}

	discardFunc := func(err error) error {
		reason := fmt.Sprintf("Failed to process message after %d attempts: %v", p.maxRetries, err)

		if markErr := p.deadLetters.MarkAsDiscarded(ctx, msg.ID, reason); markErr != nil {
			p.logger.Error("Failed to mark message as discarded", "error", markErr, "messageID", msg.ID)
		}
		return fmt.Errorf("message discarded after %d retries: %w", p.maxRetries, err)
	}

	if err := retry.RetryWithDiscard(ctx, retryFunc, retryConfig, discardFunc); err != nil {
		return err
	}

	if err := p.deadLetters.MarkAsResolved(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to mark dead letter message as resolved", "error", err, "messageID", msg.ID)
		return fmt.Errorf("failed to mark message as resolved: %w", err)
	}

	p.logger.Info("Successfully processed dead letter message",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)

	return nil
}
