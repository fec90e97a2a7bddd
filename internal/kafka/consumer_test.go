package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader serves a fixed set of messages, then blocks until the poll
// window closes (or fails, when failAfter is set).
type scriptedReader struct {
	messages  []kafkago.Message
	failAfter error
	pos       int
	closed    bool
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if r.pos < len(r.messages) {
		msg := r.messages[r.pos]
		r.pos++

		return msg, nil
	}

	if r.failAfter != nil {
		return kafkago.Message{}, r.failAfter
	}

	<-ctx.Done()

	return kafkago.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error {
	r.closed = true

	return nil
}

func testConsumer(r reader) *Consumer {
	cfg := &Config{
		Brokers:     []string{"broker:9092"},
		Topic:       "event",
		GroupID:     "eventflow-consumer-group",
		PollTimeout: 50 * time.Millisecond,
	}

	c := NewConsumer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.newReader = func() reader { return r }

	return c
}

func TestConsumerPoll(t *testing.T) {
	t.Run("collects messages until window closes", func(t *testing.T) {
		r := &scriptedReader{messages: []kafkago.Message{
			{Value: []byte(`{"user_id":"u-1"}`)},
			{Value: []byte(`{"user_id":"u-2"}`)},
		}}

		messages, err := testConsumer(r).Poll(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{`{"user_id":"u-1"}`, `{"user_id":"u-2"}`}, messages)
		assert.True(t, r.closed)
	})

	t.Run("empty topic yields empty result not error", func(t *testing.T) {
		r := &scriptedReader{}

		messages, err := testConsumer(r).Poll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("broker error with nothing read fails the poll", func(t *testing.T) {
		brokerErr := errors.New("broker unreachable")
		r := &scriptedReader{failAfter: brokerErr}

		_, err := testConsumer(r).Poll(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, brokerErr)
	})

	t.Run("broker error after partial read keeps the batch", func(t *testing.T) {
		r := &scriptedReader{
			messages:  []kafkago.Message{{Value: []byte(`{"user_id":"u-1"}`)}},
			failAfter: errors.New("broker went away"),
		}

		messages, err := testConsumer(r).Poll(context.Background())
		require.NoError(t, err)
		assert.Len(t, messages, 1)
	})

	t.Run("caller cancellation ends the poll", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := &scriptedReader{}

		messages, err := testConsumer(r).Poll(ctx)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EVENTFLOW_KAFKA_BROKERS", "broker-1:9092,broker-2:9092")

	cfg := LoadConfig()

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Brokers)
	assert.Equal(t, "event", cfg.Topic)
	assert.Equal(t, "eventflow-consumer-group", cfg.GroupID)
	assert.Equal(t, 10*time.Second, cfg.PollTimeout)
	assert.True(t, cfg.StartFromEarliest)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrNoBrokers)
}
