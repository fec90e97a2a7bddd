// Package kafka is the message source collaborator: a bounded-poll consumer
// feeding the ingestion stage and a replay producer for manual testing.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Consumer polls a topic for a bounded window and returns whatever message
// payloads arrived. An empty result is not an error: it means "no new
// artifact to write" for this tick.
type Consumer struct {
	config *Config
	logger *slog.Logger

	// newReader is swappable for tests.
	newReader func() reader
}

// reader is the slice of kafka-go's Reader the consumer uses.
type reader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// NewConsumer creates a Consumer. Pass nil logger to use slog.Default().
func NewConsumer(config *Config, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Consumer{
		config: config,
		logger: logger,
	}

	c.newReader = func() reader {
		startOffset := kafkago.LastOffset
		if config.StartFromEarliest {
			startOffset = kafkago.FirstOffset
		}

		readerConfig := kafkago.ReaderConfig{
			Brokers:     config.Brokers,
			GroupID:     config.GroupID,
			Topic:       config.Topic,
			MinBytes:    defaultMinBytes,
			MaxBytes:    defaultMaxBytes,
			StartOffset: startOffset,
		}

		if config.ClientID != "" {
			readerConfig.Dialer = &kafkago.Dialer{
				ClientID:  config.ClientID,
				Timeout:   10 * time.Second,
				DualStack: true,
			}
		}

		return kafkago.NewReader(readerConfig)
	}

	return c
}

// Poll consumes messages from the configured topic until the configured poll
// window closes. Message payloads come back as raw strings; validity is the
// cleaning stage's concern, so malformed payloads are returned like any other.
func (c *Consumer) Poll(ctx context.Context) ([]string, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	r := c.newReader()
	defer func() {
		_ = r.Close()
	}()

	c.logger.Info("polling topic",
		slog.String("topic", c.config.Topic),
		slog.Duration("timeout", c.config.PollTimeout),
	)

	var messages []string

	for {
		msg, err := r.ReadMessage(pollCtx)
		if err != nil {
			// Window closed or caller cancelled: the poll is done, not failed.
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}

			// Mid-poll broker errors fail the poll only when nothing arrived;
			// otherwise the partial batch is worth keeping.
			if len(messages) > 0 {
				c.logger.Warn("poll ended early",
					slog.String("error", err.Error()),
					slog.Int("messages", len(messages)),
				)

				break
			}

			return nil, fmt.Errorf("reading from topic %s: %w", c.config.Topic, err)
		}

		messages = append(messages, string(msg.Value))
	}

	c.logger.Info("poll complete",
		slog.String("topic", c.config.Topic),
		slog.Int("messages", len(messages)),
	)

	return messages, nil
}
