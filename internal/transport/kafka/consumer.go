package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
	"github.com/banking/compliance-engine/internal/pipeline"
	"github.com/banking/compliance-engine/internal/pkg/logger"
)

// Consumer reads transaction events from Kafka and feeds them through the
// pipeline. Malformed or failed messages go to the dead-letter topic so the
// partition keeps moving.
type Consumer struct {
	group      sarama.ConsumerGroup
	pipeline   *pipeline.Pipeline
	deadLetter *DeadLetterProducer
	topic      string
	log        *logger.Logger
}

// NewConsumer creates a consumer group over the configured brokers.
func NewConsumer(cfg *config.KafkaConfig, p *pipeline.Pipeline, deadLetter *DeadLetterProducer, log *logger.Logger) (*Consumer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Consumer{
		group:      group,
		pipeline:   p,
		deadLetter: deadLetter,
		topic:      cfg.TransactionTopic,
		log:        log.Named("kafka_consumer"),
	}, nil
}

// Run consumes until the context is canceled. Rebalances restart the
// Consume loop; only context cancellation ends it.
func (c *Consumer) Run(ctx context.Context) error {
	handler := &groupHandler{consumer: c}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("consume loop failed", logger.ErrorField(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close shuts the consumer group down.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.consumer.handle(session.Context(), message)
		// Mark regardless of outcome: failures land in the dead-letter
		// topic, never re-block the partition.
		session.MarkMessage(message, "")
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) {
	var event domain.TransactionEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		c.log.Error("malformed transaction message",
			logger.StringField("topic", message.Topic),
			logger.ErrorField(err))
		c.toDeadLetter(ctx, message, err)
		return
	}

	verdict, err := c.pipeline.Evaluate(ctx, &event)
	if err != nil {
		c.log.Error("event evaluation failed",
			logger.StringField("event_id", event.EventID.String()),
			logger.ErrorField(err))
		c.toDeadLetter(ctx, message, err)
		return
	}
	if verdict == nil {
		// Duplicate delivery; the guard already saw this event.
		return
	}
}

func (c *Consumer) toDeadLetter(ctx context.Context, message *sarama.ConsumerMessage, cause error) {
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.Send(ctx, message, cause); err != nil {
		c.log.Error("dead letter publish failed", logger.ErrorField(err))
	}
}
