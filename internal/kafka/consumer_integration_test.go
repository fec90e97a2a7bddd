package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// TestConsumerProducerRoundTrip spins up a real broker, replays an event file
// through the producer, and polls it back through the consumer.
func TestConsumerProducerRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := kafkatc.RunContainer(ctx,
		testcontainers.WithImage("confluentinc/confluent-local:7.5.0"),
		kafkatc.WithClusterID("eventflow-test-cluster"),
	)
	require.NoError(t, err, "failed to start kafka container")

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "failed to get broker addresses")

	cfg := &Config{
		Brokers:           brokers,
		Topic:             "event",
		GroupID:           "eventflow-integration-group",
		PollTimeout:       15 * time.Second,
		StartFromEarliest: true,
	}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := []map[string]any{
		{"user_id": "u-1", "event_type": "click", "props": map[string]any{"a": float64(1)}},
		{"user_id": "u-2", "event_type": "view"},
	}

	eventFile := filepath.Join(t.TempDir(), "events.json")
	data, err := json.Marshal(events)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(eventFile, data, 0o600))

	producer := NewProducer(cfg, logger)

	sent, err := producer.ReplayFile(ctx, eventFile)
	require.NoError(t, err)
	require.Equal(t, 2, sent)

	consumer := NewConsumer(cfg, logger)

	messages, err := consumer.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(messages[0]), &first))
	require.Contains(t, []any{"u-1", "u-2"}, first["user_id"])
}
