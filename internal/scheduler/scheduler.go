// Package scheduler drives the pipeline: it paces poll/clean/commit cycles,
// retries failed stages, and records each stage's output so the next stage can
// fall back to it when a hand-off reference goes missing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/eventflow-io/eventflow/internal/handoff"
	"github.com/eventflow-io/eventflow/internal/warehouse"
)

// Stage output keys in the recorded-output map.
const (
	outputPoll  = "poll"
	outputClean = "clean"
)

// Pipeline is the stage set the scheduler drives.
type Pipeline interface {
	Poll(ctx context.Context) (handoff.Ref, error)
	Clean(ctx context.Context, triggerRef handoff.Ref, recorded handoff.Lookup) (handoff.Ref, error)
	Commit(ctx context.Context, triggerRef handoff.Ref, recorded handoff.Lookup) (warehouse.LoadResult, error)
}

// Scheduler runs pipeline cycles at a fixed pace until its context ends.
type Scheduler struct {
	config   *Config
	pipeline Pipeline
	logger   *slog.Logger
	limiter  *rate.Limiter

	mu      sync.Mutex
	outputs map[string]handoff.Ref

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scheduler. Pass nil logger to use slog.Default().
func New(config *Config, pipeline Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(config.PollInterval), 1),
		outputs:  make(map[string]handoff.Ref),
		sleep:    sleepCtx,
	}
}

// Run executes pipeline cycles until ctx is cancelled. A failed cycle is
// logged and the next cycle proceeds on schedule; per-stage retries happen
// inside the cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		slog.Duration("poll_interval", s.config.PollInterval),
		slog.Int("max_retries", s.config.MaxRetries),
	)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Info("scheduler stopped")

			return nil
		}

		if err := s.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.Info("scheduler stopped")

				return nil
			}

			s.logger.Error("pipeline cycle failed", slog.String("error", err.Error()))
		}
	}
}

// RunCycle executes one poll/clean/commit pass. An empty poll ends the cycle
// early: there is nothing to clean or commit this tick.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	var rawRef handoff.Ref

	err := s.withRetry(ctx, "poll", func(ctx context.Context) error {
		var pollErr error
		rawRef, pollErr = s.pipeline.Poll(ctx)

		return pollErr
	})
	if err != nil {
		return err
	}

	if rawRef == "" {
		return nil
	}

	s.record(outputPoll, rawRef)

	var cleanedRef handoff.Ref

	err = s.withRetry(ctx, "clean", func(ctx context.Context) error {
		var cleanErr error
		cleanedRef, cleanErr = s.pipeline.Clean(ctx, rawRef, s.recorded(outputPoll))

		return cleanErr
	})
	if err != nil {
		return err
	}

	s.record(outputClean, cleanedRef)

	return s.withRetry(ctx, "commit", func(ctx context.Context) error {
		result, commitErr := s.pipeline.Commit(ctx, cleanedRef, s.recorded(outputClean))
		if commitErr != nil {
			return commitErr
		}

		s.logger.Info("cycle committed",
			slog.Int("rows", result.Rows),
			slog.String("table", result.Table),
		)

		return nil
	})
}

// record stores a stage's output for downstream fall-back resolution.
func (s *Scheduler) record(stage string, ref handoff.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outputs[stage] = ref
}

// recorded returns a lookup over a stage's last recorded output.
func (s *Scheduler) recorded(stage string) handoff.Lookup {
	return func(context.Context) (handoff.Ref, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		return s.outputs[stage], nil
	}
}

// withRetry runs fn up to 1+MaxRetries times with a fixed delay between
// attempts. Context cancellation ends the retry loop immediately.
func (s *Scheduler) withRetry(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	attempts := s.config.MaxRetries + 1

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}

		if attempt < attempts {
			s.logger.Warn("stage failed, retrying",
				slog.String("stage", stage),
				slog.Int("attempt", attempt),
				slog.Duration("retry_delay", s.config.RetryDelay),
				slog.String("error", lastErr.Error()),
			)

			if err := s.sleep(ctx, s.config.RetryDelay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("stage %s failed after %d attempts: %w", stage, attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
