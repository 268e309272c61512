package outbox

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// Publisher sends one message to a topic
type Publisher interface {
	SendMessage(ctx context.Context, topic string, key string, value []byte, headers map[string]string) error
}

// KafkaHandler publishes outbox messages to Kafka
type KafkaHandler struct {
	logger    logger.Logger
	publisher Publisher
	topic     string
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(publisher Publisher, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// HandleMessage publishes the payload keyed by aggregate id, so every event
// of one order lands on the same partition in commit order
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	headers := map[string]string{
		"event_type":     message.EventType,
		"aggregate_type": message.AggregateType,
		"message_id":     strconv.FormatInt(message.ID, 10),
	}

	h.logger.Debug("Publishing message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	if err := h.publisher.SendMessage(ctx, h.topic, message.AggregateID, message.Payload, headers); err != nil {
		h.logger.Error("Failed to publish message to Kafka",
			"error", err,
			"messageID", message.ID,
			"aggregateID", message.AggregateID)
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	h.logger.Info("Successfully published message to Kafka",
		"messageID", message.ID,
		"aggregateID", message.AggregateID)

	return nil
}
