package notelock

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisLocker(t *testing.T, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := NewRedisLocker(zap.NewNop(), config.RedisConfig{Addr: mr.Addr(), Prefix: "test:lock:"}, 10*time.Second, wait)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestNewRedisLocker_ConnectionError(t *testing.T) {
	l, err := NewRedisLocker(zap.NewNop(), config.RedisConfig{Addr: "127.0.0.1:0"}, time.Second, 0)
	assert.Nil(t, l)
	assert.Error(t, err)
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := newTestRedisLocker(t, 0)

	release, err := l.Acquire(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:n1"))
	assert.Equal(t, 10*time.Second, mr.TTL("test:lock:n1"))

	_, err = l.Acquire(context.Background(), "n1")
	assert.ErrorIs(t, err, ErrBusy)

	release()
	assert.False(t, mr.Exists("test:lock:n1"))
	release()

	again, err := l.Acquire(context.Background(), "n1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	l, mr := newTestRedisLocker(t, 0)

	release, err := l.Acquire(context.Background(), "n")
	require.NoError(t, err)

	// the key expired and another instance took it
	require.NoError(t, mr.Set("test:lock:n", "someone-else"))
	release()

	got, err := mr.Get("test:lock:n")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	l, _ := newTestRedisLocker(t, 2*time.Second)

	release, err := l.Acquire(context.Background(), "n")
	require.NoError(t, err)
	go func() {
		time.Sleep(80 * time.Millisecond)
		release()
	}()

	second, err := l.Acquire(context.Background(), "n")
	require.NoError(t, err)
	second()
}

func TestRedisLocker_WaitExpires(t *testing.T) {
	l, _ := newTestRedisLocker(t, 120*time.Millisecond)

	release, err := l.Acquire(context.Background(), "n")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = l.Acquire(context.Background(), "n")
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestNewLocker_Factory(t *testing.T) {
	mem, err := NewLocker(zap.NewNop(), &config.LockConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLocker{}, mem)

	mr := miniredis.RunT(t)
	rl, err := NewLocker(zap.NewNop(), &config.LockConfig{Type: "redis", TTL: time.Second, Redis: config.RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &RedisLocker{}, rl)
	_ = rl.Close()

	_, err = NewLocker(zap.NewNop(), &config.LockConfig{Type: "etcd"})
	assert.Error(t, err)
}
