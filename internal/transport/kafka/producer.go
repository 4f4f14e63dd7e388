package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// VerdictProducer publishes compliance verdicts for downstream consumers
// (case management, payment release, reporting).
type VerdictProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewVerdictProducer creates a synchronous producer for the verdict topic.
func NewVerdictProducer(cfg *config.KafkaConfig) (*VerdictProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create verdict producer: %w", err)
	}
	return &VerdictProducer{producer: producer, topic: cfg.VerdictTopic}, nil
}

// Publish sends one verdict, keyed by entity so per-entity ordering holds.
func (p *VerdictProducer) Publish(_ context.Context, verdict *domain.ComplianceVerdict) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(verdict.EntityID.String()),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send verdict: %w", err)
	}
	return nil
}

// Close shuts the producer down.
func (p *VerdictProducer) Close() error {
	return p.producer.Close()
}

// DeadLetterProducer forwards unprocessable messages to the dead-letter
// topic with the failure reason attached.
type DeadLetterProducer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewDeadLetterProducer creates a producer for the dead-letter topic,
// sharing the verdict producer's connection.
func NewDeadLetterProducer(verdicts *VerdictProducer, cfg *config.KafkaConfig) *DeadLetterProducer {
	return &DeadLetterProducer{producer: verdicts.producer, topic: cfg.DeadLetterTopic}
}

// Send republishes the original message with the failure reason as a header.
func (p *DeadLetterProducer) Send(_ context.Context, original *sarama.ConsumerMessage, cause error) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.ByteEncoder(original.Key),
		Value: sarama.ByteEncoder(original.Value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("origin_topic"), Value: []byte(original.Topic)},
			{Key: []byte("failure_reason"), Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		return fmt.Errorf("send dead letter: %w", err)
	}
	return nil
}
