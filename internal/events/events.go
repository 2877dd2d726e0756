package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"go.uber.org/zap"
)

// NotePushed describes one finished push into a note
type NotePushed struct {
	NoteID    string    `json:"noteId"`
	Mode      string    `json:"mode"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Bytes     int       `json:"bytes"`
	Duration  float64   `json:"durationSeconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher announces note pushes to other systems
type Publisher interface {
	Publish(ctx context.Context, ev NotePushed) error
	// Name labels the publisher in logs and metrics
	Name() string
	Close() error
}

// Type represents the type of publisher
type Type string

const (
	// TypeNoop drops every event
	TypeNoop Type = "noop"
	// TypeRedis appends events to a Redis stream
	TypeRedis Type = "redis"
	// TypeKafka produces events to a Kafka topic
	TypeKafka Type = "kafka"
)

// NewPublisher creates a Publisher based on configuration
func NewPublisher(logger *zap.Logger, cfg *config.EventsConfig) (Publisher, error) {
	logger.Info("Initializing event publisher", zap.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeNoop, "":
		return NoopPublisher{}, nil
	case TypeRedis:
		return NewRedisPublisher(logger, cfg.Redis)
	case TypeKafka:
		return NewKafkaPublisher(logger, cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported events type: %s", cfg.Type)
	}
}

func encode(ev NotePushed) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// NoopPublisher implements Publisher and discards events
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, NotePushed) error { return nil }
func (NoopPublisher) Name() string                               { return string(TypeNoop) }
func (NoopPublisher) Close() error                               { return nil }
