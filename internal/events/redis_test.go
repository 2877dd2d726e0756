package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisPublisher(t *testing.T) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p, err := NewRedisPublisher(zap.NewNop(), config.RedisConfig{
		Addr:   mr.Addr(),
		Stream: "contentd:note-pushed",
		MaxLen: 100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, mr
}

func TestRedisPublisher_ConnectionError(t *testing.T) {
	_, err := NewRedisPublisher(zap.NewNop(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisPublisher_Publish(t *testing.T) {
	p, mr := newTestRedisPublisher(t)

	err := p.Publish(context.Background(), NotePushed{NoteID: "note-1", Mode: "override", Success: true, Bytes: 5})
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	msgs, err := client.XRange(context.Background(), "contentd:note-pushed", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "note-1", msgs[0].Values["note"])
	assert.Contains(t, msgs[0].Values["event"], `"noteId":"note-1"`)
}

func TestRedisPublisher_PublishAfterClose(t *testing.T) {
	p, _ := newTestRedisPublisher(t)
	require.NoError(t, p.Close())
	assert.Error(t, p.Publish(context.Background(), NotePushed{NoteID: "n"}))
}

func TestRedisPublisher_Watch(t *testing.T) {
	p, _ := newTestRedisPublisher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Publish(ctx, NotePushed{NoteID: "a", Mode: "append", Success: true}))
	require.NoError(t, p.Publish(ctx, NotePushed{NoteID: "b", Mode: "override", Error: "server error: nope"}))

	ch := p.Watch(ctx, "0")
	var got []NotePushed
	for len(got) < 2 {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, "a", got[0].NoteID)
	assert.True(t, got[0].Success)
	assert.Equal(t, "b", got[1].NoteID)
	assert.Equal(t, "server error: nope", got[1].Error)

	cancel()
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 3*time.Second, 20*time.Millisecond)
}
