// Package handoff resolves the artifact a pipeline stage should consume.
//
// Stage hand-offs arrive through three channels of decreasing reliability: the
// reference the trigger passed explicitly, the reference the producing stage
// recorded as its own output, and a scan of the artifact store for the newest
// artifact of the expected kind. A crashed producer leaves no recorded output
// and an unreliable trigger may pass nothing, so each stage resolves its input
// through an ordered candidate chain instead of trusting a single source.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrArtifactNotFound is returned when no candidate resolves to an existing artifact.
var ErrArtifactNotFound = errors.New("no artifact resolved from any hand-off source")

type (
	// Ref is a hand-off reference: a path naming a pipeline artifact.
	// An empty Ref means "absent". A Ref that fails an existence check is
	// treated as absent, never as an error.
	Ref string

	// Lookup yields a hand-off reference or absent (empty Ref). A returned
	// error is a transient-lookup failure: the resolver logs it and advances
	// to the next candidate.
	Lookup func(ctx context.Context) (Ref, error)

	// Candidate pairs a lookup with the name of its source for diagnostics.
	Candidate struct {
		Source string
		Lookup Lookup
	}

	// Resolver evaluates candidates strictly in priority order and returns the
	// first reference that is present and verifiably exists.
	Resolver struct {
		logger *slog.Logger
		exists func(Ref) bool
	}

	// ResolverOption configures optional Resolver behavior.
	ResolverOption func(*Resolver)

	// NotFoundError reports resolution exhaustion along with every source
	// checked, for diagnostic surfacing to the trigger.
	NotFoundError struct {
		Sources []string
	}
)

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"no artifact resolved; checked sources: %s",
		strings.Join(e.Sources, ", "),
	)
}

// Unwrap makes NotFoundError match ErrArtifactNotFound under errors.Is.
func (e *NotFoundError) Unwrap() error { return ErrArtifactNotFound }

// WithExistsFunc overrides the artifact existence check. The default checks
// the reference as a path on the local filesystem.
func WithExistsFunc(exists func(Ref) bool) ResolverOption {
	return func(r *Resolver) {
		r.exists = exists
	}
}

// NewResolver creates a Resolver. Pass nil to use slog.Default().
func NewResolver(logger *slog.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resolver{
		logger: logger,
		exists: refExists,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the first candidate reference that is present and refers to
// an artifact that exists at resolution time. Lookup errors are transient:
// logged and treated as absent. A stale reference to a deleted artifact is
// skipped, not returned. If every candidate is exhausted, Resolve fails with
// a NotFoundError carrying the list of sources checked.
func (r *Resolver) Resolve(ctx context.Context, candidates ...Candidate) (Ref, error) {
	sources := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		sources = append(sources, candidate.Source)

		ref, err := candidate.Lookup(ctx)
		if err != nil {
			r.logger.Warn("hand-off lookup failed, trying next source",
				slog.String("source", candidate.Source),
				slog.String("error", err.Error()),
			)

			continue
		}

		if ref == "" {
			r.logger.Debug("hand-off source empty",
				slog.String("source", candidate.Source),
			)

			continue
		}

		if !r.exists(ref) {
			r.logger.Warn("hand-off reference is stale, trying next source",
				slog.String("source", candidate.Source),
				slog.String("ref", string(ref)),
			)

			continue
		}

		r.logger.Info("resolved stage input",
			slog.String("source", candidate.Source),
			slog.String("ref", string(ref)),
		)

		return ref, nil
	}

	return "", &NotFoundError{Sources: sources}
}

// Static wraps a known reference as a Lookup. An empty reference stays absent.
func Static(ref Ref) Lookup {
	return func(context.Context) (Ref, error) {
		return ref, nil
	}
}

// Absent is a Lookup that always yields no reference.
func Absent() Lookup {
	return func(context.Context) (Ref, error) {
		return "", nil
	}
}

func refExists(ref Ref) bool {
	info, err := os.Stat(string(ref))
	if err != nil {
		return false
	}

	return !info.IsDir()
}
