// Package stage implements the three pipeline stages: poll, clean, commit.
//
// Each stage runs to completion in a single invocation, produces a durable
// artifact (or a warehouse load), and returns the reference the trigger passes
// downstream. Input resolution goes through the hand-off chain: the trigger's
// explicit reference first, then the producing stage's recorded output, then
// the newest artifact of the expected kind in the store.
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/eventflow-io/eventflow/internal/artifact"
	"github.com/eventflow-io/eventflow/internal/cleaning"
	"github.com/eventflow-io/eventflow/internal/handoff"
	"github.com/eventflow-io/eventflow/internal/schema"
	"github.com/eventflow-io/eventflow/internal/warehouse"
)

type (
	// MessageSource is the message-bus collaborator the poll stage consumes
	// from. An empty result means no new artifact to write, not an error.
	MessageSource interface {
		Poll(ctx context.Context) ([]string, error)
	}

	// Stages wires the pipeline components together.
	Stages struct {
		source   MessageSource
		store    *artifact.Store
		resolver *handoff.Resolver
		cleaner  *cleaning.Cleaner
		mapper   *schema.Mapper
		loader   *warehouse.Loader
		logger   *slog.Logger
	}
)

// New creates the stage set. Pass nil logger to use slog.Default().
func New(
	source MessageSource,
	store *artifact.Store,
	resolver *handoff.Resolver,
	cleaner *cleaning.Cleaner,
	mapper *schema.Mapper,
	loader *warehouse.Loader,
	logger *slog.Logger,
) *Stages {
	if logger == nil {
		logger = slog.Default()
	}

	return &Stages{
		source:   source,
		store:    store,
		resolver: resolver,
		cleaner:  cleaner,
		mapper:   mapper,
		loader:   loader,
		logger:   logger,
	}
}

// Poll consumes the topic and persists the batch as a raw artifact. An empty
// poll returns an empty reference and no error: there is simply nothing to
// hand off this tick.
func (s *Stages) Poll(ctx context.Context) (handoff.Ref, error) {
	messages, err := s.source.Poll(ctx)
	if err != nil {
		return "", fmt.Errorf("poll stage: %w", err)
	}

	if len(messages) == 0 {
		s.logger.Warn("no messages received, skipping artifact creation")

		return "", nil
	}

	payload, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("poll stage: encoding raw batch: %w", err)
	}

	ref, err := s.store.Write(artifact.KindRaw, payload)
	if err != nil {
		return "", fmt.Errorf("poll stage: %w", err)
	}

	s.logger.Info("raw batch written",
		slog.Int("messages", len(messages)),
		slog.String("ref", string(ref)),
	)

	return ref, nil
}

// Clean resolves its raw input, cleans it, and persists the cleaned batch as
// a CSV artifact. triggerRef may be empty; recorded may be nil when the poll
// stage has no recorded output.
func (s *Stages) Clean(ctx context.Context, triggerRef handoff.Ref, recorded handoff.Lookup) (handoff.Ref, error) {
	ref, err := s.resolver.Resolve(ctx,
		handoff.Candidate{Source: "trigger parameter", Lookup: handoff.Static(triggerRef)},
		handoff.Candidate{Source: "poll stage recorded output", Lookup: orAbsent(recorded)},
		handoff.Candidate{Source: "latest raw artifact", Lookup: s.latest(artifact.KindRaw)},
	)
	if err != nil {
		return "", fmt.Errorf("clean stage: %w", err)
	}

	payload, err := s.store.Read(ref)
	if err != nil {
		return "", fmt.Errorf("clean stage: %w", err)
	}

	records, err := s.cleaner.CleanJSON(payload)
	if err != nil {
		return "", fmt.Errorf("clean stage: %w", err)
	}

	encoded, err := cleaning.EncodeCSV(records)
	if err != nil {
		return "", fmt.Errorf("clean stage: %w", err)
	}

	cleanedRef, err := s.store.Write(artifact.KindCleaned, encoded)
	if err != nil {
		return "", fmt.Errorf("clean stage: %w", err)
	}

	s.logger.Info("cleaned batch written",
		slog.Int("records", len(records)),
		slog.String("input", string(ref)),
		slog.String("ref", string(cleanedRef)),
	)

	return cleanedRef, nil
}

// Commit resolves its cleaned input, maps it onto the destination schema, and
// bulk-loads it into the warehouse.
func (s *Stages) Commit(ctx context.Context, triggerRef handoff.Ref, recorded handoff.Lookup) (warehouse.LoadResult, error) {
	ref, err := s.resolver.Resolve(ctx,
		handoff.Candidate{Source: "trigger parameter", Lookup: handoff.Static(triggerRef)},
		handoff.Candidate{Source: "clean stage recorded output", Lookup: orAbsent(recorded)},
		handoff.Candidate{Source: "latest cleaned artifact", Lookup: s.latest(artifact.KindCleaned)},
	)
	if err != nil {
		return warehouse.LoadResult{}, fmt.Errorf("commit stage: %w", err)
	}

	payload, err := s.store.Read(ref)
	if err != nil {
		return warehouse.LoadResult{}, fmt.Errorf("commit stage: %w", err)
	}

	records, err := cleaning.DecodeCSV(payload)
	if err != nil {
		return warehouse.LoadResult{}, fmt.Errorf("commit stage: %w", err)
	}

	rows := s.mapper.MapBatch(records)

	result, err := s.loader.Load(ctx, rows)
	if err != nil {
		return warehouse.LoadResult{}, fmt.Errorf("commit stage: %w", err)
	}

	return result, nil
}

// latest adapts a store scan to a hand-off lookup.
func (s *Stages) latest(kind artifact.Kind) handoff.Lookup {
	return func(context.Context) (handoff.Ref, error) {
		ref, ok := s.store.Latest(kind)
		if !ok {
			return "", nil
		}

		return ref, nil
	}
}

func orAbsent(lookup handoff.Lookup) handoff.Lookup {
	if lookup == nil {
		return handoff.Absent()
	}

	return lookup
}
