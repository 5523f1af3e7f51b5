package appkafka

import (
	"context"
	"testing"
	"time"

	"example.com/minitweet/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_EncodesEvent(t *testing.T) {
	mock := &MockKafka{}
	p := NewPublisher(mock)

	ev := models.Event{
		Kind:         models.EventLike,
		ActorID:      "bob",
		ActorName:    "bob",
		TargetUserID: "alice",
		TweetID:      "t1",
		Created:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, mock.WrittenMessages, 1)
	msg := mock.WrittenMessages[0]
	assert.Equal(t, "alice", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "like", string(msg.Headers[0].Value))

	decoded, err := DecodeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
	assert.Equal(t, []models.Event{ev}, mock.Events())
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisher(&MockKafkaFail{})
	assert.Error(t, p.Publish(context.Background(), models.Event{Kind: models.EventFollow}))
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, err := DecodeEvent(kafka.Message{Value: []byte("{invalid-json}")})
	assert.Error(t, err)
}

func TestMockKafka_ReadQueue(t *testing.T) {
	m := &MockKafka{ReadMessages: []kafka.Message{{Value: []byte("a")}, {Value: []byte("b")}}}
	ctx := context.Background()

	first, err := m.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", string(first.Value))

	_, err = m.ReadMessage(ctx)
	require.NoError(t, err)

	_, err = m.ReadMessage(ctx)
	assert.Error(t, err)
}

func TestNewKafkaWriter_RequiresTopic(t *testing.T) {
	_, err := NewKafkaWriter(KafkaConfig{})
	assert.Error(t, err)

	w, err := NewKafkaWriter(KafkaConfig{Topic: "minitweet-activity"})
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

func TestNewKafkaWriter_FlushesQuickly(t *testing.T) {
	w, err := NewKafkaWriter(KafkaConfig{Topic: "minitweet-activity"})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, writerBatchTimeout, w.writer.BatchTimeout)
	assert.LessOrEqual(t, w.writer.BatchTimeout, 50*time.Millisecond)
	assert.False(t, w.writer.Async, "publish errors must reach the caller for metrics")
}
