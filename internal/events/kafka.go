package events

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/amoylab/contentd/internal/common/config"
	"go.uber.org/zap"
)

// KafkaPublisher implements Publisher with a synchronous Kafka producer.
// Messages are keyed by note id so pushes to one note stay ordered.
type KafkaPublisher struct {
	logger   *zap.Logger
	producer sarama.SyncProducer
	topic    string
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher connects a SyncProducer to the configured brokers
func NewKafkaPublisher(logger *zap.Logger, cfg config.KafkaConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect kafka: %w", err)
	}
	return NewKafkaPublisherWithProducer(logger, producer, cfg.Topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(logger *zap.Logger, producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		logger:   logger.Named("events.kafka"),
		producer: producer,
		topic:    topic,
	}
}

func producerConfig(cfg config.KafkaConfig) *sarama.Config {
	kc := sarama.NewConfig()
	kc.ClientID = cfg.ClientID
	// SyncProducer requires Return.Successes
	kc.Producer.Return.Successes = true
	kc.Producer.RequiredAcks = sarama.WaitForLocal
	return kc
}

// Publish implements Publisher.Publish
func (p *KafkaPublisher) Publish(ctx context.Context, ev NotePushed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(ev)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.NoteID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}
	p.logger.Debug("event produced",
		zap.String("note", ev.NoteID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Name implements Publisher.Name
func (p *KafkaPublisher) Name() string { return string(TypeKafka) }

// Close implements Publisher.Close
func (p *KafkaPublisher) Close() error { return p.producer.Close() }
