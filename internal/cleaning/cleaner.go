// Package cleaning transforms raw message batches into well-typed records.
//
// Input entries arrive in whatever shape the producers put on the topic:
// JSON-encoded strings, already-decoded objects, or garbage. The cleaner is
// tolerant per entry (malformed entries are dropped and logged) and strict per
// batch (a batch with zero usable records fails, because downstream stages
// assume non-empty input). Collapsing those two tiers would change failure
// semantics, so both are enforced here and nowhere else.
package cleaning

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyResult is returned when no usable records survive cleaning.
// It is fatal to the invocation, not a silent no-op.
var ErrEmptyResult = errors.New("no valid records after cleaning")

// Nested fields whose values may arrive as JSON- or literal-encoded strings.
// They are materialized as objects so later stages see structured values.
var nestedFields = []string{"props", "geo_location"}

type (
	// Record is a cleaned event: field name to scalar or nested-object value.
	Record map[string]any

	// Cleaner normalizes raw batches.
	Cleaner struct {
		logger *slog.Logger
	}
)

// NewCleaner creates a Cleaner. Pass nil to use slog.Default().
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cleaner{logger: logger}
}

// CleanJSON decodes a raw batch artifact (a JSON array of objects or of
// JSON-encoded strings) and cleans it. A payload that is not a JSON array at
// all is a batch-level failure; per-entry problems are handled by Clean.
func (c *Cleaner) CleanJSON(payload []byte) ([]Record, error) {
	var raw []any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decoding raw batch: %w", err)
	}

	return c.Clean(raw)
}

// Clean processes each entry independently:
//
//   - string entries are parsed as JSON; parse failure drops the entry
//   - non-mapping entries are dropped
//   - nested fields given as strings are decoded, strict JSON first, then a
//     permissive literal parse; if both fail the field becomes an empty object
//
// Dropped entries never abort the batch. If zero entries survive, Clean fails
// with ErrEmptyResult.
func (c *Cleaner) Clean(raw []any) ([]Record, error) {
	records := make([]Record, 0, len(raw))

	for i, entry := range raw {
		if s, ok := entry.(string); ok {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				c.logger.Warn("skipping entry with invalid JSON",
					slog.Int("index", i),
				)

				continue
			}

			entry = parsed
		}

		obj, ok := entry.(map[string]any)
		if !ok {
			c.logger.Warn("skipping non-object entry",
				slog.Int("index", i),
				slog.String("type", fmt.Sprintf("%T", entry)),
			)

			continue
		}

		record := Record(obj)

		for _, field := range nestedFields {
			value, present := record[field]
			if !present {
				continue
			}

			s, isString := value.(string)
			if !isString {
				continue
			}

			decoded, ok := decodeObjectString(s)
			if !ok {
				c.logger.Warn("failed to decode nested field, replacing with empty object",
					slog.Int("index", i),
					slog.String("field", field),
				)

				decoded = map[string]any{}
			}

			record[field] = decoded
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w (processed %d raw entries)", ErrEmptyResult, len(raw))
	}

	c.logger.Info("cleaned batch",
		slog.Int("kept", len(records)),
		slog.Int("dropped", len(raw)-len(records)),
	)

	return records, nil
}

// decodeObjectString materializes a string-encoded mapping. Strict JSON is
// tried first; producers that serialize Python dicts need the literal parse.
func decodeObjectString(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil && obj != nil {
		return obj, true
	}

	obj, err := ParseLiteralObject(s)
	if err != nil {
		return nil, false
	}

	return obj, true
}
