// Package outbox publishes the events written inside order and product
// transactions, and replays the ones that ended up in the dead letter queue.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// MessageHandler defines the interface for handling outbox messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Processor is responsible for processing outbox messages
type Processor struct {
	outbox          repository.OutboxStore
	deadLetters     repository.DeadLetterStore
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	// MaxRetries is the number of delivery attempts before a message moves
	// to the dead letter queue
	MaxRetries int
}

// NewProcessor creates a new Processor
func NewProcessor(
	outbox repository.OutboxStore,
	deadLetters repository.DeadLetterStore,
	config ProcessorConfig,
	logger logger.Logger,
) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}

	return &Processor{
		outbox:          outbox,
		deadLetters:     deadLetters,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      config.MaxRetries,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type.
// Handlers must be registered before Start.
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the outbox processor
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.processOutbox()
	}()

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize,
		"maxRetries", p.maxRetries)
}

// Stop stops the outbox processor
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

func (p *Processor) processOutbox() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(p.ctx, p.pollingInterval)
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
			cancel()
		}
	}
}

// ProcessBatch delivers one batch of pending messages and returns how many
// were delivered
func (p *Processor) ProcessBatch(ctx context.Context) (int, error) {
	messages, err := p.outbox.GetPendingMessages(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending messages to process")
		return 0, nil
	}

	p.logger.Info("Processing batch of outbox messages", "count", len(messages))

	delivered := 0
	for _, msg := range messages {
		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Error("Failed to process message",
				"error", err,
				"messageID", msg.ID,
				"aggregateID", msg.AggregateID,
				"eventType", msg.EventType)
			continue
		}
		delivered++
	}

	return delivered, nil
}

func (p *Processor) processMessage(ctx context.Context, msg *models.OutboxMessage) error {
	if err := p.outbox.MarkAsProcessing(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as processing: %w", err)
	}
	attempt := msg.ProcessingAttempts + 1

	handler, exists := p.handlers[msg.EventType]
	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type: %s", msg.EventType)
		p.giveUp(ctx, msg, errorMsg, "no handler available")
		return fmt.Errorf("%s", errorMsg)
	}

	err := handler.HandleMessage(ctx, msg)
	if err != nil {
		if attempt >= p.maxRetries {
			p.giveUp(ctx, msg, err.Error(), fmt.Sprintf("max retries (%d) exceeded", p.maxRetries))
			return fmt.Errorf("message failed after %d attempts: %w", attempt, err)
		}

		p.logger.Warn("Message processing failed, will retry",
			"error", err,
			"messageID", msg.ID,
			"attempt", attempt)

		if releaseErr := p.outbox.ReleaseForRetry(ctx, msg.ID, err.Error()); releaseErr != nil {
			p.logger.Error("Failed to release message for retry", "error", releaseErr, "messageID", msg.ID)
		}
		return err
	}

	if err := p.outbox.MarkAsCompleted(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to mark message as completed", "error", err, "messageID", msg.ID)
		return fmt.Errorf("failed to mark message as completed: %w", err)
	}

	p.logger.Info("Successfully processed message",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)

	return nil
}

// giveUp marks the message failed and moves a copy to the dead letter queue
func (p *Processor) giveUp(ctx context.Context, msg *models.OutboxMessage, errorMsg, reason string) {
	p.logger.Error("Moving message to dead letter queue",
		"messageID", msg.ID,
		"eventType", msg.EventType,
		"reason", reason)

	if err := p.outbox.MarkAsFailed(ctx, msg.ID, errorMsg); err != nil {
		p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
	}

	if p.deadLetters == nil {
		return
	}

	if err := p.deadLetters.Create(ctx, models.NewDeadLetterMessage(msg, errorMsg, reason)); err != nil {
		p.logger.Error("Failed to create dead letter message", "error", err, "messageID", msg.ID)
	}
}
