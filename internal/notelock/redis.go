package notelock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const retryInterval = 50 * time.Millisecond

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX keys
type RedisLocker struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a Redis-backed Locker and checks the connection
func NewRedisLocker(logger *zap.Logger, cfg config.RedisConfig, ttl, wait time.Duration) (*RedisLocker, error) {
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

	return &RedisLocker{
		logger: logger.Named("notelock.redis"),
		client: client,
		prefix: cfg.Prefix,
		ttl:    ttl,
		wait:   wait,
	}, nil
}

func (l *RedisLocker) key(noteID string) string {
	return l.prefix + noteID
}

// Acquire implements Locker.Acquire
func (l *RedisLocker) Acquire(ctx context.Context, noteID string) (Release, error) {
	key := l.key(noteID)
	token := uuid.NewString()

	wctx, cancel := waitContext(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(wctx, key, token, l.ttl).Result()
		if err != nil {
			if wctx.Err() != nil {
				return nil, busyOrErr(ctx)
			}
			return nil, fmt.Errorf("failed to acquire note lock: %w", err)
		}
		if ok {
			break
		}
		if l.wait <= 0 {
			return nil, busyOrErr(ctx)
		}
		select {
		case <-time.After(retryInterval):
		case <-wctx.Done():
			l.logger.Debug("note lock wait expired", zap.String("note", noteID))
			return nil, busyOrErr(ctx)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the push may have been cancelled; release with a fresh context
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release note lock", zap.String("note", noteID), zap.Error(err))
			}
		})
	}, nil
}

// Close implements Locker.Close
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
