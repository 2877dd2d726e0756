package notelock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryLocker implements Locker with per-note semaphores
type MemoryLocker struct {
	logger *zap.Logger
	wait   time.Duration
	mu     sync.Mutex
	notes  map[string]*memoryEntry
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates a new in-process Locker
func NewMemoryLocker(logger *zap.Logger, wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		logger: logger.Named("notelock.memory"),
		wait:   wait,
		notes:  make(map[string]*memoryEntry),
	}
}

func (l *MemoryLocker) ref(noteID string) *memoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.notes[noteID]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		l.notes[noteID] = e
	}
	e.refs++
	return e
}

func (l *MemoryLocker) unref(noteID string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.notes, noteID)
	}
}

// Acquire implements Locker.Acquire
func (l *MemoryLocker) Acquire(ctx context.Context, noteID string) (Release, error) {
	e := l.ref(noteID)

	select {
	case e.sem <- struct{}{}:
	default:
		if l.wait <= 0 {
			l.unref(noteID, e)
			return nil, busyOrErr(ctx)
		}
		wctx, cancel := waitContext(ctx, l.wait)
		defer cancel()
		select {
		case e.sem <- struct{}{}:
		case <-wctx.Done():
			l.unref(noteID, e)
			l.logger.Debug("note lock wait expired", zap.String("note", noteID))
			return nil, busyOrErr(ctx)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.unref(noteID, e)
		})
	}, nil
}

// Close implements Locker.Close
func (l *MemoryLocker) Close() error { return nil }
