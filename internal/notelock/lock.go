package notelock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/contentd/internal/common/config"
	"go.uber.org/zap"
)

// ErrBusy is returned when the note stays locked for the whole wait period
var ErrBusy = errors.New("note is busy")

// Release gives the lock back. Calling it more than once is harmless.
type Release func()

// Locker serializes pushes to the same note
type Locker interface {
	// Acquire blocks until the note lock is held, the wait period ends or ctx is done
	Acquire(ctx context.Context, noteID string) (Release, error)
	Close() error
}

// Type represents the type of lock backend
type Type string

const (
	// TypeMemory locks inside this process only
	TypeMemory Type = "memory"
	// TypeRedis locks across instances sharing a Redis
	TypeRedis Type = "redis"
)

// NewLocker creates a Locker based on configuration
func NewLocker(logger *zap.Logger, cfg *config.LockConfig) (Locker, error) {
	logger.Info("Initializing note lock", zap.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeMemory:
		return NewMemoryLocker(logger, cfg.Wait), nil
	case TypeRedis:
		return NewRedisLocker(logger, cfg.Redis, cfg.TTL, cfg.Wait)
	default:
		return nil, fmt.Errorf("unsupported lock type: %s", cfg.Type)
	}
}

// waitContext bounds ctx by the wait period; a zero wait means a single attempt
func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}

// busyOrErr maps a wait-period expiry onto ErrBusy and keeps caller cancellation
func busyOrErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrBusy
}
