package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev NotePushed
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.NoteID != "note-1" || ev.Mode != "append" {
			return errors.New("unexpected event payload")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(zap.NewNop(), producer, "contentd.note-pushed")
	assert.Equal(t, "kafka", p.Name())
	require.NoError(t, p.Publish(context.Background(), NotePushed{NoteID: "note-1", Mode: "append", Success: true}))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_PublishFails(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(zap.NewNop(), producer, "t")
	err := p.Publish(context.Background(), NotePushed{NoteID: "n"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	p := NewKafkaPublisherWithProducer(zap.NewNop(), producer, "t")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, NotePushed{NoteID: "n"}), context.Canceled)
	require.NoError(t, p.Close())
}

func TestProducerConfig(t *testing.T) {
	kc := producerConfig(config.KafkaConfig{ClientID: "contentd"})
	assert.Equal(t, "contentd", kc.ClientID)
	assert.True(t, kc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForLocal, kc.Producer.RequiredAcks)
	assert.NoError(t, kc.Validate())
}
