package scheduler

import (
	"errors"
	"time"

	"github.com/eventflow-io/eventflow/internal/config"
)

const (
	defaultPollInterval = time.Minute
	defaultMaxRetries   = 2
	defaultRetryDelay   = 60 * time.Second
)

// Sentinel errors for scheduler configuration.
var (
	// ErrPollIntervalInvalid is returned when the poll interval is not positive.
	ErrPollIntervalInvalid = errors.New("poll interval must be positive")

	// ErrMaxRetriesNegative is returned when the retry count is negative.
	ErrMaxRetriesNegative = errors.New("max retries cannot be negative")
)

// Config holds pipeline scheduling and retry policy.
type Config struct {
	PollInterval time.Duration // time between pipeline cycles
	MaxRetries   int           // retries per stage after the first attempt
	RetryDelay   time.Duration // fixed delay between attempts
}

// LoadConfig loads scheduler configuration from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		PollInterval: config.GetEnvDuration("EVENTFLOW_POLL_INTERVAL", defaultPollInterval),
		MaxRetries:   config.GetEnvInt("EVENTFLOW_MAX_RETRIES", defaultMaxRetries),
		RetryDelay:   config.GetEnvDuration("EVENTFLOW_RETRY_DELAY", defaultRetryDelay),
	}
}

// Validate checks if the scheduler configuration is valid.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrPollIntervalInvalid
	}

	if c.MaxRetries < 0 {
		return ErrMaxRetriesNegative
	}

	return nil
}
