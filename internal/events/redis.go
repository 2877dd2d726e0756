package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher implements Publisher using a Redis stream
type RedisPublisher struct {
	logger *zap.Logger
	client *redis.Client
	stream string
	maxLen int64
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(logger *zap.Logger, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublisher{
		logger: logger.Named("events.redis"),
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}, nil
}

// Publish implements Publisher.Publish
func (p *RedisPublisher) Publish(ctx context.Context, ev NotePushed) error {
	data, err := encode(ev)
	if err != nil {
		return err
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"note":  ev.NoteID,
			"event": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to add message to stream: %w", err)
	}
	return nil
}

// Watch reads events after the stream id from until ctx is done.
// Use "$" to receive only events appended after the call.
func (p *RedisPublisher) Watch(ctx context.Context, from string) <-chan NotePushed {
	ch := make(chan NotePushed, 10)

	go func() {
		defer close(ch)
		lastID := from
		for {
			if ctx.Err() != nil {
				return
			}
			streams, err := p.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{p.stream, lastID},
				Count:   10,
				Block:   time.Second,
			}).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					p.logger.Error("failed to read from stream", zap.Error(err))
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					lastID = message.ID
					raw, ok := message.Values["event"].(string)
					if !ok {
						continue
					}
					var ev NotePushed
					if err := json.Unmarshal([]byte(raw), &ev); err != nil {
						p.logger.Warn("skipping malformed event", zap.String("id", message.ID), zap.Error(err))
						continue
					}
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch
}

// Name implements Publisher.Name
func (p *RedisPublisher) Name() string { return string(TypeRedis) }

// Close implements Publisher.Close
func (p *RedisPublisher) Close() error { return p.client.Close() }
