package kafka

import (
	"errors"
	"time"

	"github.com/eventflow-io/eventflow/internal/config"
)

const (
	defaultTopic       = "event"
	defaultGroup       = "eventflow-consumer-group"
	defaultPollTimeout = 10 * time.Second
	defaultMinBytes    = 1
	defaultMaxBytes    = 10 << 20 // 10MB, matches the broker-side message cap
)

// ErrNoBrokers is returned when no bootstrap brokers are configured.
var ErrNoBrokers = errors.New("kafka brokers cannot be empty")

// Config holds Kafka consumer and producer configuration.
type Config struct {
	Brokers     []string
	Topic       string
	GroupID     string
	ClientID    string
	PollTimeout time.Duration

	// StartFromEarliest makes a new consumer group begin at the earliest
	// retained offset instead of only new messages.
	StartFromEarliest bool
}

// LoadConfig loads Kafka configuration from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		Brokers:           config.ParseCommaSeparatedList(config.GetEnvStr("EVENTFLOW_KAFKA_BROKERS", "")),
		Topic:             config.GetEnvStr("EVENTFLOW_KAFKA_TOPIC", defaultTopic),
		GroupID:           config.GetEnvStr("EVENTFLOW_KAFKA_GROUP", defaultGroup),
		ClientID:          config.GetEnvStr("EVENTFLOW_KAFKA_CLIENT_ID", ""),
		PollTimeout:       config.GetEnvDuration("EVENTFLOW_KAFKA_POLL_TIMEOUT", defaultPollTimeout),
		StartFromEarliest: config.GetEnvBool("EVENTFLOW_KAFKA_START_FROM_EARLIEST", true),
	}
}

// Validate checks if the Kafka configuration is valid.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	return nil
}
