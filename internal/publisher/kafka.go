package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/jgoulah/velocount/internal/config"
)

// Kafka sends aggregates to a topic keyed by counter name
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka creates a synchronous producer for the configured brokers
func NewKafka(cfg config.KafkaConfig) (*Kafka, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("Kafka publishing is not enabled in config")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("Kafka brokers are required when enabled")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewKafkaConfig())
	if err != nil {
		return nil, fmt.Errorf("creating Kafka producer: %w", err)
	}

	return newKafkaWithProducer(producer, cfg.GetTopic()), nil
}

// NewKafkaConfig returns the producer settings used by NewKafka
func NewKafkaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true
	return saramaConfig
}

func newKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// Name returns the sink name used for published tracking
func (p *Kafka) Name() string {
	return "kafka"
}

// Publish sends all records as one batch
func (p *Kafka) Publish(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(records))
	for _, r := range records {
		body, err := json.Marshal(NewPayload(r))
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(r.Aggregate.CounterName),
			Value: sarama.ByteEncoder(body),
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("sending messages: %w", err)
	}
	return nil
}

// Close flushes and closes the producer
func (p *Kafka) Close() {
	if p.producer != nil {
		p.producer.Close()
	}
}
