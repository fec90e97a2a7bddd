package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	kafkago "github.com/segmentio/kafka-go"
)

// Producer replays a JSON event file onto the topic. It exists for manual
// pipeline testing: seed the topic, then watch a poll tick pick the events up.
type Producer struct {
	config *Config
	logger *slog.Logger
}

// NewProducer creates a Producer. Pass nil logger to use slog.Default().
func NewProducer(config *Config, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Producer{
		config: config,
		logger: logger,
	}
}

// ReplayFile reads a JSON array of event objects and produces one message per
// event. Messages are keyed by user_id when present so one user's events land
// on one partition in order.
func (p *Producer) ReplayFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading event file: %w", err)
	}

	var events []map[string]any
	if err := json.Unmarshal(data, &events); err != nil {
		return 0, fmt.Errorf("decoding event file %s: %w", path, err)
	}

	messages := make([]kafkago.Message, 0, len(events))

	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("encoding event: %w", err)
		}

		msg := kafkago.Message{Value: value}

		if userID, ok := event["user_id"].(string); ok && userID != "" {
			msg.Key = []byte(userID)
		}

		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		p.logger.Warn("event file contains no events", slog.String("path", path))

		return 0, nil
	}

	w := &kafkago.Writer{
		Addr:     kafkago.TCP(p.config.Brokers...),
		Topic:    p.config.Topic,
		Balancer: &kafkago.Hash{},
	}

	if p.config.ClientID != "" {
		w.Transport = &kafkago.Transport{ClientID: p.config.ClientID}
	}

	defer func() {
		_ = w.Close()
	}()

	if err := w.WriteMessages(ctx, messages...); err != nil {
		return 0, fmt.Errorf("producing to topic %s: %w", p.config.Topic, err)
	}

	p.logger.Info("events replayed",
		slog.String("path", path),
		slog.String("topic", p.config.Topic),
		slog.Int("events", len(messages)),
	)

	return len(messages), nil
}
